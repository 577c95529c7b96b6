package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bowerhall/bubble/internal/mood"
)

type MoodRecord struct {
	SessionID  string    `json:"sessionId,omitempty"`
	Mood       mood.Mood `json:"mood"`
	Value      int       `json:"value"`
	RecordedAt time.Time `json:"timestamp"`
}

// RecordMood stores a mood reported by a client.
func (s *Store) RecordMood(ctx context.Context, sessionID string, m mood.Mood, value int) error {
	if !m.Valid() {
		return &ValidationError{Field: "mood", Message: "unknown mood " + string(m)}
	}
	value = max(0, min(100, value))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_records (session_id, mood, value, recorded_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(m), value, millis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert mood record: %w", err)
	}
	return nil
}

// MoodHistory returns up to limit records, oldest first. An empty
// sessionID covers every session.
func (s *Store) MoodHistory(ctx context.Context, sessionID string, limit int) ([]MoodRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, mood, value, recorded_at FROM (
			SELECT id, session_id, mood, value, recorded_at FROM mood_records
			WHERE ? = '' OR session_id = ?
			ORDER BY recorded_at DESC, id DESC
			LIMIT ?
		) ORDER BY recorded_at ASC, id ASC
	`, sessionID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []MoodRecord{}
	for rows.Next() {
		var r MoodRecord
		var m string
		var recorded int64
		if err := rows.Scan(&r.SessionID, &m, &r.Value, &recorded); err != nil {
			return nil, err
		}
		r.Mood = mood.Mood(m)
		r.RecordedAt = fromMillis(recorded)
		records = append(records, r)
	}

	return records, rows.Err()
}
