// Package budget caps daily language-model token spend.
package budget

import (
	"context"
	"sync"
	"time"

	"github.com/bowerhall/bubble/internal/logger"
)

type Tracker struct {
	mu         sync.Mutex
	dailyLimit int
	warnAt     float64
	tokens     int
	lastReset  time.Time
	onWarn     func(used, limit int)
	onExceeded func(used, limit int)
	warnSent   bool
	timezone   *time.Location
	store      *Store
}

// Config with a zero DailyLimit tracks usage without enforcing a cap.
type Config struct {
	DailyLimit int
	WarnAt     float64
	Timezone   *time.Location
}

func NewTracker(cfg Config, onWarn, onExceeded func(used, limit int)) *Tracker {
	tz := cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}

	warnAt := cfg.WarnAt
	if warnAt <= 0 || warnAt > 1 {
		warnAt = 0.8
	}

	return &Tracker{
		dailyLimit: cfg.DailyLimit,
		warnAt:     warnAt,
		lastReset:  time.Now().In(tz),
		onWarn:     onWarn,
		onExceeded: onExceeded,
		timezone:   tz,
	}
}

// SetStore persists usage and restores today's total from it.
func (t *Tracker) SetStore(ctx context.Context, s *Store) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = s
	if s == nil {
		return
	}

	tokens, err := s.TodayTokens(ctx)
	if err != nil {
		logger.Warn("budget: failed to load today's usage", "error", err)
		return
	}

	t.tokens = tokens
	if t.limited() && float64(t.tokens) >= float64(t.dailyLimit)*t.warnAt {
		t.warnSent = true
	}
}

func (t *Tracker) Store() *Store {
	return t.store
}

// Exhausted reports whether today's cap is already used up.
func (t *Tracker) Exhausted() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	return t.limited() && t.tokens >= t.dailyLimit
}

func (t *Tracker) Add(tokens int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	t.tokens += tokens

	if !t.limited() {
		return true
	}

	if t.tokens >= t.dailyLimit {
		if t.onExceeded != nil {
			t.onExceeded(t.tokens, t.dailyLimit)
		}

		return false
	}

	if !t.warnSent && float64(t.tokens) >= float64(t.dailyLimit)*t.warnAt {
		t.warnSent = true

		if t.onWarn != nil {
			t.onWarn(t.tokens, t.dailyLimit)
		}
	}

	return true
}

// Record adds one completion's usage and reports whether the cap still holds.
func (t *Tracker) Record(ctx context.Context, provider, model string, inputTokens, outputTokens int) bool {
	if t == nil {
		return true
	}

	if t.store != nil {
		if err := t.store.Record(ctx, provider, model, inputTokens, outputTokens); err != nil {
			// usage tracking shouldn't block replies
			logger.Warn("budget: failed to record usage", "error", err)
		}
	}

	return t.Add(inputTokens + outputTokens)
}

func (t *Tracker) Usage() (used, limit int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	return t.tokens, t.dailyLimit
}

// must hold lock
func (t *Tracker) limited() bool {
	return t.dailyLimit > 0
}

// must hold lock
func (t *Tracker) checkReset() {
	now := time.Now().In(t.timezone)
	if now.YearDay() != t.lastReset.YearDay() || now.Year() != t.lastReset.Year() {
		t.tokens = 0
		t.warnSent = false
		t.lastReset = now
	}
}
