package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Affirmation struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	Text         string    `json:"text"`
	ReminderTime string    `json:"reminderTime,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AffirmationPatch carries the fields of an update; nil leaves a field as is.
type AffirmationPatch struct {
	Text         *string
	ReminderTime *string
	IsActive     *bool
}

// standard 5-field cron expressions
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DailySchedule turns an "HH:MM" reminder time into the cron schedule that
// fires at that minute every day.
func DailySchedule(hhmm string) (cron.Schedule, error) {
	hour, minute, ok := strings.Cut(hhmm, ":")
	if !ok || len(hour) != 2 || len(minute) != 2 {
		return nil, &ValidationError{Field: "reminderTime", Message: "must be HH:MM"}
	}

	sched, err := cronParser.Parse(fmt.Sprintf("%s %s * * *", minute, hour))
	if err != nil {
		return nil, &ValidationError{Field: "reminderTime", Message: "must be HH:MM"}
	}
	return sched, nil
}

func (s *Store) CreateAffirmation(ctx context.Context, a Affirmation) (*Affirmation, error) {
	a.Text = strings.TrimSpace(a.Text)
	if a.UserID == 0 || a.Text == "" {
		return nil, &ValidationError{Field: "userId", Message: "User ID and text are required"}
	}
	if a.ReminderTime != "" {
		if _, err := DailySchedule(a.ReminderTime); err != nil {
			return nil, err
		}
	}

	a.CreatedAt = fromMillis(millis(time.Now()))
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO affirmations (user_id, text, reminder_time, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.UserID, a.Text, a.ReminderTime, a.IsActive, millis(a.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert affirmation: %w", err)
	}

	if a.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *Store) Affirmations(ctx context.Context, userID int64) ([]Affirmation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, text, reminder_time, is_active, created_at FROM affirmations WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAffirmations(rows)
}

func (s *Store) Affirmation(ctx context.Context, id int64) (*Affirmation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, text, reminder_time, is_active, created_at FROM affirmations WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list, err := scanAffirmations(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *Store) UpdateAffirmation(ctx context.Context, id int64, patch AffirmationPatch) (*Affirmation, error) {
	a, err := s.Affirmation(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Text != nil {
		text := strings.TrimSpace(*patch.Text)
		if text == "" {
			return nil, &ValidationError{Field: "text", Message: "is required"}
		}
		a.Text = text
	}
	if patch.ReminderTime != nil {
		if *patch.ReminderTime != "" {
			if _, err := DailySchedule(*patch.ReminderTime); err != nil {
				return nil, err
			}
		}
		a.ReminderTime = *patch.ReminderTime
	}
	if patch.IsActive != nil {
		a.IsActive = *patch.IsActive
	}

	err = affected(s.db.ExecContext(ctx,
		`UPDATE affirmations SET text = ?, reminder_time = ?, is_active = ? WHERE id = ?`,
		a.Text, a.ReminderTime, a.IsActive, id,
	))
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Store) DeleteAffirmation(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM affirmations WHERE id = ?`, id))
}

// AffirmationsAt returns the active affirmations whose reminder time is the
// minute of now.
func (s *Store) AffirmationsAt(ctx context.Context, now time.Time) ([]Affirmation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, text, reminder_time, is_active, created_at FROM affirmations WHERE is_active = 1 AND reminder_time = ?`,
		now.Format("15:04"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAffirmations(rows)
}

func scanAffirmations(rows *sql.Rows) ([]Affirmation, error) {
	list := []Affirmation{}
	for rows.Next() {
		var a Affirmation
		var created int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Text, &a.ReminderTime, &a.IsActive, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = fromMillis(created)
		list = append(list, a)
	}
	return list, rows.Err()
}
