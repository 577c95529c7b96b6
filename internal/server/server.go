// Package server exposes the companion over a websocket at /ws and a JSON
// API under /api.
package server

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/bowerhall/bubble/internal/budget"
	"github.com/bowerhall/bubble/internal/companion"
	"github.com/bowerhall/bubble/internal/environment"
	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/store"
)

func New(cfg Config, service *companion.Service, db *store.Store, catalogue *environment.Catalogue) *Server {
	if cfg.Port == "" {
		cfg.Port = "5000"
	}
	if catalogue == nil {
		catalogue = environment.Default()
	}

	registry := service.Sessions()
	s := &Server{
		cfg:       cfg,
		service:   service,
		registry:  registry,
		store:     db,
		catalogue: catalogue,
		hub:       NewHub(registry, cfg.PingInterval),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		started: time.Now(),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	s.echo = s.routes()
	return s
}

func (s *Server) SetBudget(b *budget.Tracker) {
	s.budget = b
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler serves /ws and the JSON API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/", s.echo)
	return mux
}

// Run listens on the configured port until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("server starting", "port", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("server shutting down")
		for _, c := range s.registry.Clients() {
			c.Close()
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
