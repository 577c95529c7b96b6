package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/store"
)

var safeSpaceAffirmations = []string{
	"You are doing your best, and that is enough.",
	"You are worthy of love and support.",
	"Your feelings are valid and important.",
	"Each breath is a fresh start.",
	"You have the strength to overcome challenges.",
}

const defaultMoodDataLimit = 30

type journalRequest struct {
	UserID  int64  `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Mood    string `json:"mood"`
}

type reminderRequest struct {
	UserID      int64      `json:"userId"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Time        *time.Time `json:"time"`
	IsComplete  *bool      `json:"isComplete"`
}

type affirmationRequest struct {
	UserID       int64   `json:"userId"`
	Text         *string `json:"text"`
	ReminderTime *string `json:"reminderTime"`
	IsActive     *bool   `json:"isActive"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type socialRequest struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Provider string `json:"provider,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) registerJournalRoutes(g *echo.Group) {
	g.GET("/journal/list", s.listJournal)
	g.POST("/journal/add", s.addJournal)
	g.DELETE("/journal/delete/:id", s.deleteJournal)
	g.GET("/journal/mood-data", s.moodData)
	g.GET("/safe-space/affirmation", s.safeSpaceAffirmation)
}

func (s *Server) registerReminderRoutes(g *echo.Group) {
	g.GET("/reminders/list", s.listReminders)
	g.POST("/reminders", s.createReminder)
	g.PUT("/reminders/:id", s.updateReminder)
	g.DELETE("/reminders/:id", s.deleteReminder)
}

func (s *Server) registerAffirmationRoutes(g *echo.Group) {
	g.GET("/affirmations", s.listAffirmations)
	g.POST("/affirmations", s.createAffirmation)
	g.PUT("/affirmations/:id", s.updateAffirmation)
	g.DELETE("/affirmations/:id", s.deleteAffirmation)
}

func (s *Server) registerAuthRoutes(g *echo.Group) {
	g.POST("/auth/register", s.register)
	g.POST("/auth/login", s.login)
	g.POST("/auth/social", s.socialLogin)
}

func userIDParam(c *echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.QueryParam("userId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func idParam(c *echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// journal

func (s *Server) listJournal(c *echo.Context) error {
	userID, ok := userIDParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "User ID is required")
	}

	entries, err := s.store.JournalEntries(c.Request().Context(), userID)
	if err != nil {
		return storeFailure(c, err, "fetch journal entries")
	}
	return c.JSON(http.StatusOK, nonNil(entries))
}

func (s *Server) addJournal(c *echo.Context) error {
	var req journalRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.UserID <= 0 {
		return fail(c, http.StatusBadRequest, "User ID is required")
	}

	entry, err := s.store.AddJournalEntry(c.Request().Context(), store.JournalEntry{
		UserID:  req.UserID,
		Title:   req.Title,
		Content: req.Content,
		Mood:    mood.Mood(strings.ToLower(strings.TrimSpace(req.Mood))),
	})
	if err != nil {
		return storeFailure(c, err, "add journal entry")
	}
	return c.JSON(http.StatusCreated, entry)
}

func (s *Server) deleteJournal(c *echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid id")
	}

	if err := s.store.DeleteJournalEntry(c.Request().Context(), id); err != nil {
		return storeFailure(c, err, "delete journal entry")
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) moodData(c *echo.Context) error {
	limit := defaultMoodDataLimit
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		limit = n
	}

	records, err := s.store.MoodHistory(c.Request().Context(), c.QueryParam("sessionId"), limit)
	if err != nil {
		return storeFailure(c, err, "fetch mood data")
	}
	return c.JSON(http.StatusOK, nonNil(records))
}

func (s *Server) safeSpaceAffirmation(c *echo.Context) error {
	s.rngMu.Lock()
	text := safeSpaceAffirmations[s.rng.IntN(len(safeSpaceAffirmations))]
	s.rngMu.Unlock()

	return c.JSON(http.StatusOK, map[string]string{"affirmation": text})
}

// reminders

func (s *Server) listReminders(c *echo.Context) error {
	userID, ok := userIDParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "User ID is required")
	}

	reminders, err := s.store.Reminders(c.Request().Context(), userID)
	if err != nil {
		return storeFailure(c, err, "fetch reminders")
	}
	return c.JSON(http.StatusOK, nonNil(reminders))
}

func (s *Server) createReminder(c *echo.Context) error {
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.UserID <= 0 {
		return fail(c, http.StatusBadRequest, "User ID is required")
	}

	r := store.Reminder{UserID: req.UserID}
	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.Time != nil {
		r.ScheduledTime = *req.Time
	}
	if req.IsComplete != nil {
		r.IsComplete = *req.IsComplete
	}

	created, err := s.store.CreateReminder(c.Request().Context(), r)
	if err != nil {
		return storeFailure(c, err, "create reminder")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateReminder(c *echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid id")
	}

	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	updated, err := s.store.UpdateReminder(c.Request().Context(), id, store.ReminderPatch{
		Title:         req.Title,
		Description:   req.Description,
		ScheduledTime: req.Time,
		IsComplete:    req.IsComplete,
	})
	if err != nil {
		return storeFailure(c, err, "update reminder")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteReminder(c *echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid id")
	}

	if err := s.store.DeleteReminder(c.Request().Context(), id); err != nil {
		return storeFailure(c, err, "delete reminder")
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// affirmations

func (s *Server) listAffirmations(c *echo.Context) error {
	userID, ok := userIDParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "User ID is required")
	}

	affirmations, err := s.store.Affirmations(c.Request().Context(), userID)
	if err != nil {
		return storeFailure(c, err, "fetch affirmations")
	}
	return c.JSON(http.StatusOK, nonNil(affirmations))
}

func (s *Server) createAffirmation(c *echo.Context) error {
	var req affirmationRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.UserID <= 0 || req.Text == nil || strings.TrimSpace(*req.Text) == "" {
		return fail(c, http.StatusBadRequest, "User ID and text are required")
	}

	a := store.Affirmation{UserID: req.UserID, Text: *req.Text, IsActive: true}
	if req.ReminderTime != nil {
		a.ReminderTime = *req.ReminderTime
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}

	created, err := s.store.CreateAffirmation(c.Request().Context(), a)
	if err != nil {
		return storeFailure(c, err, "create affirmation")
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateAffirmation(c *echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid id")
	}

	var req affirmationRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	updated, err := s.store.UpdateAffirmation(c.Request().Context(), id, store.AffirmationPatch{
		Text:         req.Text,
		ReminderTime: req.ReminderTime,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return storeFailure(c, err, "update affirmation")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteAffirmation(c *echo.Context) error {
	id, ok := idParam(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid id")
	}

	if err := s.store.DeleteAffirmation(c.Request().Context(), id); err != nil {
		return storeFailure(c, err, "delete affirmation")
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// auth

func (s *Server) register(c *echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	user, err := s.store.CreateUser(c.Request().Context(), store.NewUser{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return storeFailure(c, err, "register user")
	}
	return c.JSON(http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

func (s *Server) login(c *echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	user, err := s.store.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return storeFailure(c, err, "authenticate")
	}
	return c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

// socialLogin trusts the provider's assertion; the token is not verified.
func (s *Server) socialLogin(c *echo.Context) error {
	var req socialRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	user, err := s.store.SocialLogin(c.Request().Context(), req.Provider, req.Email, req.Name)
	if err != nil {
		return storeFailure(c, err, "authenticate with social provider")
	}
	return c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username, Provider: user.AuthProvider})
}
