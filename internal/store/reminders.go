package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Reminder struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ScheduledTime time.Time `json:"time"`
	IsComplete    bool      `json:"isComplete"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ReminderPatch struct {
	Title         *string
	Description   *string
	ScheduledTime *time.Time
	IsComplete    *bool
}

const reminderColumns = `id, user_id, title, description, scheduled_time, is_complete, created_at`

func (s *Store) CreateReminder(ctx context.Context, r Reminder) (*Reminder, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	if r.ScheduledTime.IsZero() {
		return nil, &ValidationError{Field: "time", Message: "is required"}
	}

	r.ScheduledTime = fromMillis(millis(r.ScheduledTime))
	r.CreatedAt = fromMillis(millis(time.Now()))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, title, description, scheduled_time, is_complete, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Title, r.Description, millis(r.ScheduledTime), r.IsComplete, millis(r.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}

	if r.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	return &r, nil
}

// Reminders lists a user's reminders by scheduled time.
func (s *Store) Reminders(ctx context.Context, userID int64) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY scheduled_time, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (s *Store) Reminder(ctx context.Context, id int64) (*Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list, err := scanReminders(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *Store) UpdateReminder(ctx context.Context, id int64, patch ReminderPatch) (*Reminder, error) {
	r, err := s.Reminder(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, &ValidationError{Field: "title", Message: "is required"}
		}
		r.Title = title
	}
	if patch.Description != nil {
		r.Description = *patch.Description
	}
	if patch.ScheduledTime != nil {
		r.ScheduledTime = fromMillis(millis(*patch.ScheduledTime))
		// rescheduling re-arms a fired reminder
		if patch.IsComplete == nil {
			r.IsComplete = false
		}
	}
	if patch.IsComplete != nil {
		r.IsComplete = *patch.IsComplete
	}

	err = affected(s.db.ExecContext(ctx,
		`UPDATE reminders SET title = ?, description = ?, scheduled_time = ?, is_complete = ? WHERE id = ?`,
		r.Title, r.Description, millis(r.ScheduledTime), r.IsComplete, id,
	))
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (s *Store) DeleteReminder(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id))
}

// DueReminders returns incomplete reminders scheduled at or before now.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE is_complete = 0 AND scheduled_time <= ? ORDER BY scheduled_time, id`,
		millis(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (s *Store) CompleteReminder(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `UPDATE reminders SET is_complete = 1 WHERE id = ?`, id))
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	list := []Reminder{}
	for rows.Next() {
		var r Reminder
		var scheduled, created int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &scheduled, &r.IsComplete, &created); err != nil {
			return nil, err
		}
		r.ScheduledTime = fromMillis(scheduled)
		r.CreatedAt = fromMillis(created)
		list = append(list, r)
	}
	return list, rows.Err()
}
