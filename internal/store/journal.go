package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bowerhall/bubble/internal/mood"
)

type JournalEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      mood.Mood `json:"mood"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Store) AddJournalEntry(ctx context.Context, e JournalEntry) (*JournalEntry, error) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	if strings.TrimSpace(e.Content) == "" {
		return nil, &ValidationError{Field: "content", Message: "is required"}
	}

	m, ok := mood.Parse(string(e.Mood))
	if !ok {
		if e.Mood != "" {
			return nil, &ValidationError{Field: "mood", Message: "unknown mood " + string(e.Mood)}
		}
		m = mood.Neutral
	}
	e.Mood = m

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = fromMillis(millis(e.CreatedAt))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (user_id, title, content, mood, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.Title, e.Content, string(e.Mood), millis(e.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}

	if e.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	return &e, nil
}

// JournalEntries lists a user's entries, newest first.
func (s *Store) JournalEntries(ctx context.Context, userID int64) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, content, mood, created_at FROM journal_entries WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var e JournalEntry
		var m string
		var created int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &m, &created); err != nil {
			return nil, err
		}
		e.Mood = mood.Mood(m)
		e.CreatedAt = fromMillis(created)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *Store) DeleteJournalEntry(ctx context.Context, id int64) error {
	return affected(s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ?`, id))
}
