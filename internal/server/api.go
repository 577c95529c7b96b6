package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/lithammer/shortuuid/v4"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bowerhall/bubble/internal/budget"
	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/protocol"
	"github.com/bowerhall/bubble/internal/store"
)

const sessionPrefix = "session_"

type HealthResponse struct {
	Status  string          `json:"status"`
	Uptime  int64           `json:"uptime"`
	Clients int             `json:"clients"`
	Memory  *MemoryStats    `json:"memory,omitempty"`
	Budget  *BudgetStats    `json:"budget,omitempty"`
	Usage   *budget.Summary `json:"usage,omitempty"`
}

type MemoryStats struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

type BudgetStats struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

type environmentRequest struct {
	EnvironmentID string `json:"environmentId"`
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()

	api := e.Group("/api")
	api.GET("/health", s.health)
	api.POST("/interactions/process", s.processInteraction)
	api.GET("/environment/list", s.listEnvironments)
	api.POST("/environment/change", s.changeEnvironment)

	s.registerJournalRoutes(api)
	s.registerReminderRoutes(api)
	s.registerAffirmationRoutes(api)
	s.registerAuthRoutes(api)

	return e
}

func (s *Server) health(c *echo.Context) error {
	ctx := c.Request().Context()

	resp := HealthResponse{
		Status:  "ok",
		Uptime:  int64(time.Since(s.started).Seconds()),
		Clients: s.hub.Clients(),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		resp.Memory = &MemoryStats{Total: vm.Total, Used: vm.Used, UsedPercent: vm.UsedPercent}
	}

	if s.budget != nil {
		used, limit := s.budget.Usage()
		resp.Budget = &BudgetStats{Used: used, Limit: limit}
		if st := s.budget.Store(); st != nil {
			if summary, err := st.Today(ctx); err == nil {
				resp.Usage = summary
			}
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// processInteraction is the HTTP fallback for a chat turn. A session token
// is minted on the first call and must be echoed back to keep context.
func (s *Server) processInteraction(c *echo.Context) error {
	var req protocol.ProcessRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fail(c, http.StatusBadRequest, "Message is required")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = sessionPrefix + shortuuid.New()
	}

	resp, err := s.service.Respond(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, protocol.ProcessResponse{
		Response:  resp.Message,
		Mood:      resp.Mood.String(),
		SessionID: sessionID,
		Fallback:  resp.Fallback,
	})
}

func (s *Server) listEnvironments(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.catalogue.List())
}

// changeEnvironment resolves the environment (unknown ids get the default)
// and tells every connected client about it.
func (s *Server) changeEnvironment(c *echo.Context) error {
	var req environmentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	env := s.catalogue.Get(req.EnvironmentID)
	s.hub.Broadcast(protocol.EnvironmentChange{Environment: env.ID})

	return c.JSON(http.StatusOK, env)
}

func fail(c *echo.Context, status int, message string) error {
	return c.JSON(status, protocol.ErrorResponse{Error: message})
}

// storeFailure maps a store error onto a response. what names the failed
// operation in the 500 message.
func storeFailure(c *echo.Context, err error, what string) error {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		return fail(c, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrUsernameTaken):
		return fail(c, http.StatusConflict, "Username already taken")
	case errors.Is(err, store.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	default:
		logger.Error("request failed", "op", what, "path", c.Request().URL.Path, "error", err)
		return fail(c, http.StatusInternalServerError, "Failed to "+what)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
