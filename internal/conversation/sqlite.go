package conversation

import (
	"context"
	"database/sql"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS recent_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recent_messages_session ON recent_messages(session_id, id);
`

// SQLiteStore keeps history in a recent_messages table so sessions can
// survive a restart.
type SQLiteStore struct {
	db  *sql.DB
	max int
}

// NewSQLiteStore creates the buffer using the provided database connection.
func NewSQLiteStore(db *sql.DB, maxTurns int) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, max: normalizeMax(maxTurns)}
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if err := validate(sessionID, turn); err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO recent_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, turn.Role, turn.Text, turn.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return err
	}

	// trim to max turns (FIFO)
	_, err = tx.ExecContext(ctx, `
		DELETE FROM recent_messages
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM recent_messages
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		)`, sessionID, sessionID, s.max)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at
			FROM recent_messages
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, sessionID, s.max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var createdAt int64
		if err := rows.Scan(&t.Role, &t.Text, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = time.UnixMilli(createdAt)
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recent_messages WHERE session_id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxIdle).UnixMilli()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM recent_messages
		WHERE session_id IN (
			SELECT session_id FROM recent_messages
			GROUP BY session_id
			HAVING MAX(created_at) < ?
		)`, cutoff)
	if err != nil {
		return 0, err
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close is a no-op: the database handle belongs to the caller.
func (s *SQLiteStore) Close() error {
	return nil
}
