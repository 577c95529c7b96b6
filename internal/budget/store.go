package budget

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS llm_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at INTEGER NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_llm_usage_recorded ON llm_usage(recorded_at);
`

type Store struct {
	db       *sql.DB
	timezone *time.Location
}

func NewStore(db *sql.DB, timezone *time.Location) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create usage schema: %w", err)
	}

	tz := timezone
	if tz == nil {
		tz = time.UTC
	}

	return &Store{db: db, timezone: tz}, nil
}

func (s *Store) Record(ctx context.Context, provider, model string, inputTokens, outputTokens int) error {
	cost := CalculateCost(model, inputTokens, outputTokens)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_usage (recorded_at, provider, model, input_tokens, output_tokens, cost_usd) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(),
		provider,
		model,
		inputTokens,
		outputTokens,
		cost,
	)

	return err
}

type Summary struct {
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	CostUSD      float64 `json:"costUsd"`
}

func (s *Store) SummaryRange(ctx context.Context, from, to time.Time) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cost_usd), 0)
		FROM llm_usage
		WHERE recorded_at >= ? AND recorded_at < ?
	`, from.UnixMilli(), to.UnixMilli())

	var sum Summary
	if err := row.Scan(&sum.Requests, &sum.InputTokens, &sum.OutputTokens, &sum.CostUSD); err != nil {
		return nil, err
	}

	return &sum, nil
}

func (s *Store) Today(ctx context.Context) (*Summary, error) {
	now := time.Now().In(s.timezone)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.timezone)

	return s.SummaryRange(ctx, start, start.AddDate(0, 0, 1))
}

func (s *Store) TodayTokens(ctx context.Context) (int, error) {
	sum, err := s.Today(ctx)
	if err != nil {
		return 0, err
	}
	return sum.InputTokens + sum.OutputTokens, nil
}
