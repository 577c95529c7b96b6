package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/bowerhall/bubble/internal/alerts"
	"github.com/bowerhall/bubble/internal/bot"
	"github.com/bowerhall/bubble/internal/budget"
	"github.com/bowerhall/bubble/internal/companion"
	"github.com/bowerhall/bubble/internal/config"
	"github.com/bowerhall/bubble/internal/conversation"
	"github.com/bowerhall/bubble/internal/environment"
	"github.com/bowerhall/bubble/internal/llm"
	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/scheduler"
	"github.com/bowerhall/bubble/internal/server"
	"github.com/bowerhall/bubble/internal/session"
	"github.com/bowerhall/bubble/internal/storage"
	"github.com/bowerhall/bubble/internal/store"
)

func init() {
	godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	tz, _ := time.LoadLocation(cfg.Timezone)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", "error", err)
	}
	defer db.Close()

	history, err := conversation.New(conversation.Config{
		Driver:   conversation.Driver(cfg.History.Driver),
		MaxTurns: cfg.History.MaxTurns,
		DB:       db.DB(),
		RedisURL: cfg.History.RedisURL,
		IdleTTL:  cfg.History.IdleTTL,
	})
	if err != nil {
		logger.Fatal("failed to open conversation history", "error", err)
	}
	defer history.Close()

	model, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Fatal("failed to create llm", "error", err)
	}

	gateway := companion.NewGateway(model, companion.LoadPersona(cfg.PersonaPath), llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	gateway.SetTimeout(cfg.LLM.Timeout)

	alerter := alerts.New(func(message string) {
		logger.Warn("alert", "message", message)
	}, cfg.Alerts.Cooldown)
	gateway.SetAlerter(alerter)

	var tracker *budget.Tracker
	if cfg.Budget.Enabled {
		tracker = budget.NewTracker(
			budget.Config{
				DailyLimit: cfg.Budget.DailyLimit,
				WarnAt:     cfg.Budget.WarnAt,
				Timezone:   tz,
			},
			func(used, limit int) {
				logger.Warn("budget warning", "used", used, "limit", limit)
			},
			func(used, limit int) {
				alerter.Critical("budget", fmt.Sprintf("daily limit reached: %d/%d tokens", used, limit), nil)
			},
		)

		usage, err := budget.NewStore(db.DB(), tz)
		if err != nil {
			logger.Fatal("failed to create usage store", "error", err)
		}
		tracker.SetStore(context.Background(), usage)
		gateway.SetBudget(tracker)

		logger.Info("budget tracking enabled", "limit", cfg.Budget.DailyLimit, "warnAt", cfg.Budget.WarnAt)
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	service := companion.NewService(gateway, history, session.NewRegistry(), mood.NewBank(rng))
	service.SetMoodRecorder(db)

	catalogue := environment.Default()
	if cfg.Environments != "" {
		catalogue, err = environment.Load(cfg.Environments)
		if err != nil {
			logger.Fatal("failed to load environments", "error", err)
		}
	}

	srv := server.New(server.Config{
		Port:         cfg.Port,
		PingInterval: cfg.Session.PingInterval,
		Resume:       cfg.Session.Resume,
	}, service, db, catalogue)
	srv.SetBudget(tracker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var bots []bot.Bot
	for name, inst := range map[string]config.BotInstance{
		"telegram": cfg.Bots.Telegram,
		"discord":  cfg.Bots.Discord,
	} {
		if !inst.Enabled {
			continue
		}

		b, err := bot.New(bot.Config{Provider: name, Token: inst.Token}, service)
		if err != nil {
			logger.Fatal("failed to create bot", "provider", name, "error", err)
		}
		bots = append(bots, b)
	}

	notify := func(message string) int {
		sent := srv.Hub().Notify(message)
		for _, b := range bots {
			sent += b.Notify(message)
		}
		return sent
	}

	jobs := scheduler.New(tz)
	if err := jobs.AddReminders(db, notify); err != nil {
		logger.Fatal("failed to schedule reminders", "error", err)
	}
	if err := jobs.AddSweep(service, time.Hour, cfg.History.IdleTTL); err != nil {
		logger.Fatal("failed to schedule sweep", "error", err)
	}

	if cfg.Storage.Enabled {
		backups, err := storage.NewClient(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		})
		if err != nil {
			logger.Error("failed to create storage client", "error", err)
		} else {
			initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := backups.Init(initCtx)
			cancel()

			if err != nil {
				logger.Error("failed to init backup bucket", "error", err)
			} else {
				keep := cfg.Storage.Keep
				err := jobs.AddBackup(cfg.Storage.Schedule, func(ctx context.Context) error {
					name, err := backups.Backup(ctx, db, keep)
					if err != nil {
						alerter.Warn("backup", "database backup failed", err)
						return err
					}
					logger.Info("database backed up", "object", name, "bucket", backups.Bucket())
					return nil
				})
				if err != nil {
					logger.Fatal("failed to schedule backup", "error", err)
				}
				logger.Info("backups enabled", "endpoint", cfg.Storage.Endpoint, "schedule", cfg.Storage.Schedule)
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return jobs.Run(ctx) })

	var providers []string
	for _, b := range bots {
		providers = append(providers, b.Name())
		g.Go(func() error {
			if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("bot stopped", "provider", b.Name(), "error", err)
			}
			return nil
		})
	}

	logger.Info("bubble started",
		"port", cfg.Port,
		"llm", cfg.LLM.Provider,
		"model", model.Model(),
		"history", cfg.History.Driver,
		"bots", providers,
		"resume", cfg.Session.Resume,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown with error", "error", err)
	}

	logger.Info("shutting down")
}
