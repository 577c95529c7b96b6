// Package scheduler runs the server's periodic jobs: reminder and
// affirmation delivery, idle-session sweeps and database backups.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/store"
)

// NotifyFunc pushes a message to every connected client and reports how
// many received it.
type NotifyFunc func(message string) int

// ReminderSource is the part of the store the reminder job needs.
type ReminderSource interface {
	DueReminders(ctx context.Context, now time.Time) ([]store.Reminder, error)
	CompleteReminder(ctx context.Context, id int64) error
	AffirmationsAt(ctx context.Context, now time.Time) ([]store.Affirmation, error)
}

// Sweeper drops conversations idle longer than maxIdle.
type Sweeper interface {
	Sweep(ctx context.Context, maxIdle time.Duration) (int, error)
}

// Runner owns a cron instance and the jobs registered on it.
type Runner struct {
	cron     *cron.Cron
	timezone *time.Location
	ctx      context.Context
	cancel   context.CancelFunc
	now      func() time.Time
}

func New(tz *time.Location) *Runner {
	if tz == nil {
		tz = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:     cron.New(cron.WithLocation(tz)),
		timezone: tz,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

func (r *Runner) add(name, spec string, job func(ctx context.Context)) error {
	_, err := r.cron.AddFunc(spec, func() {
		start := time.Now()
		job(r.ctx)
		logger.Debug("job finished", "job", name, "elapsed", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	logger.Debug("job scheduled", "job", name, "spec", spec)
	return nil
}

// AddReminders delivers due reminders and affirmations at the top of every minute.
func (r *Runner) AddReminders(src ReminderSource, notify NotifyFunc) error {
	return r.add("reminders", "* * * * *", func(ctx context.Context) {
		r.DeliverDue(ctx, src, notify, r.now().In(r.timezone))
	})
}

// AddSweep drops idle conversations every interval.
func (r *Runner) AddSweep(s Sweeper, interval, maxIdle time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	return r.add("sweep", "@every "+interval.String(), func(ctx context.Context) {
		removed, err := s.Sweep(ctx, maxIdle)
		if err != nil {
			logger.Error("idle sweep failed", "error", err)
			return
		}
		if removed > 0 {
			logger.Info("idle conversations swept", "entries", removed)
		}
	})
}

// AddBackup runs fn on the given cron schedule.
func (r *Runner) AddBackup(spec string, fn func(ctx context.Context) error) error {
	return r.add("backup", spec, func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			logger.Error("backup failed", "error", err)
		}
	})
}

// DeliverDue pushes what is due at now and reports how many items went out.
// A reminder is completed once pushed so it fires exactly once; with no
// client connected it stays pending for the next run.
func (r *Runner) DeliverDue(ctx context.Context, src ReminderSource, notify NotifyFunc, now time.Time) int {
	sent := 0

	reminders, err := src.DueReminders(ctx, now)
	if err != nil {
		logger.Error("failed to get due reminders", "error", err)
	}
	for _, rem := range reminders {
		if notify("Reminder: "+rem.Title) == 0 {
			logger.Debug("reminder deferred, no clients", "id", rem.ID)
			continue
		}
		if err := src.CompleteReminder(ctx, rem.ID); err != nil {
			logger.Error("failed to complete reminder", "id", rem.ID, "error", err)
			continue
		}
		sent++
		logger.Info("reminder delivered", "id", rem.ID, "user", rem.UserID)
	}

	affirmations, err := src.AffirmationsAt(ctx, now)
	if err != nil {
		logger.Error("failed to get due affirmations", "error", err)
	}
	for _, a := range affirmations {
		if notify("Affirmation: "+a.Text) > 0 {
			sent++
		}
	}

	return sent
}

// Run starts the jobs and blocks until ctx is done, then waits for
// running jobs to finish.
func (r *Runner) Run(ctx context.Context) error {
	r.cron.Start()
	logger.Info("scheduler started", "jobs", len(r.cron.Entries()))

	<-ctx.Done()

	r.cancel()
	<-r.cron.Stop().Done()
	logger.Debug("scheduler stopped")
	return nil
}
