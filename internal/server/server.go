// Package server exposes conversations, streamed replies and the live voice
// relay over HTTP so a browser front end can drive scholar.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/turn"
	"github.com/arin/scholar/internal/voice"
)

const bodyLimit = 1 << 20

// Server holds the handlers' dependencies.
type Server struct {
	store  *history.Store
	runner *turn.Runner
	dial   voice.Dialer
	logger *slog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithVoice enables the /api/voice relay using dial for live connections.
func WithVoice(dial voice.Dialer) Option { return func(s *Server) { s.dial = dial } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server over a history store and a turn runner.
func New(store *history.Store, runner *turn.Runner, opts ...Option) *Server {
	s := &Server{store: store, runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/conversations", s.listConversations)
		r.Post("/conversations", s.createConversation)
		r.Get("/conversations/{id}", s.getConversation)
		r.Delete("/conversations/{id}", s.deleteConversation)
		r.Post("/conversations/{id}/messages", s.sendMessage)
		r.Post("/conversations/{id}/messages/{msgID}/retry", s.retryMessage)
		r.Post("/conversations/{id}/suggest", s.suggest)
		r.Get("/voice", s.voiceRelay)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
