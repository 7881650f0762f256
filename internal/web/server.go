package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/internal/database"
	"github.com/focusd/focusd/internal/metrics"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
	logger  zerolog.Logger
}

// NewServer builds the dashboard server. status may be nil when the web UI
// runs without a tracker in the same process.
func NewServer(cfg *config.Config, repo *database.Repository, status StatusSource, logger zerolog.Logger, customPort int) *Server {
	logger = logger.With().Str("component", "web").Logger()
	handler := NewHandler(cfg, repo, status, logger)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
		logger:  logger,
	}
}

// Router assembles the chi router with all routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/", h.handleIndex)
	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/usage", h.handleUsage)
		r.Get("/usage/latest", h.handleLatest)
		r.Get("/summary", h.handleSummary)
		r.Get("/today", h.handleToday)
		r.Get("/afk", h.handleAfk)
		r.Get("/report", h.handleReport)
		r.Get("/errors", h.handleErrors)

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", h.handleListGoals)
			r.Get("/progress", h.handleGoalProgress)
			r.Put("/{app}", h.handlePutGoal)
			r.Delete("/{app}", h.handleDeleteGoal)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.handleListCategories)
			r.Post("/", h.handleCreateCategory)
			r.Get("/usage", h.handleCategoryUsage)
			r.Put("/{id}", h.handleUpdateCategory)
			r.Delete("/{id}", h.handleDeleteCategory)
			r.Put("/{id}/apps/{app}", h.handleAddCategoryApp)
			r.Delete("/{id}/apps/{app}", h.handleRemoveCategoryApp)
		})

		r.Route("/aliases", func(r chi.Router) {
			r.Get("/", h.handleListAliases)
			r.Put("/{app}", h.handlePutAlias)
			r.Delete("/{app}", h.handleDeleteAlias)
		})
	})

	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.server.Addr)
	}
	s.logger.Info().Str("addr", "http://"+ln.Addr().String()).Msg("starting web server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down web server")
	return s.server.Shutdown(ctx)
}
