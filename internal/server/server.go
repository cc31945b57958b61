// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes research runs, validation completion and result
// read-back over HTTP. Research runs stream as text/event-stream, one JSON
// event per data line.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/checkpoint"
	"github.com/pdiddy/insight-engine/internal/research"
	"github.com/pdiddy/insight-engine/internal/store"
	"github.com/pdiddy/insight-engine/internal/validation"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// Store is the read side of the store the handlers need.
type Store interface {
	Idea(ctx context.Context, id string) (types.IdeaProfile, error)
	Results(ctx context.Context, ideaID string) ([]types.ResultRecord, error)
	Cards(ctx context.Context, ideaID string) ([]types.CardRecord, error)
}

// Researcher runs streamed research. *research.Orchestrator implements it.
type Researcher interface {
	Validate(req research.Request) ([]types.Category, error)
	Run(ctx context.Context, req research.Request, sink research.Sink) (research.Summary, error)
}

// Completer completes validation. *validation.Service implements it.
type Completer interface {
	Complete(ctx context.Context, req validation.Request) (validation.Summary, error)
}

// Options configures a Server. Checkpoints may be nil.
type Options struct {
	Store       Store
	Research    Researcher
	Validation  Completer
	Checkpoints checkpoint.Store

	// Tokens maps bearer tokens to user IDs.
	Tokens map[string]string
	Logger *zap.Logger
}

// Server serves the HTTP API.
type Server struct {
	store       Store
	research    Researcher
	validation  Completer
	checkpoints checkpoint.Store
	tokens      map[string]string
	logger      *zap.Logger
}

// New returns a Server.
func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Research == nil || opts.Validation == nil {
		return nil, errors.New("server requires a store, a researcher and a completer")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		store:       opts.Store,
		research:    opts.Research,
		validation:  opts.Validation,
		checkpoints: opts.Checkpoints,
		tokens:      opts.Tokens,
		logger:      opts.Logger,
	}, nil
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("POST /api/research", s.authenticated(s.handleResearch))
	mux.Handle("POST /api/ideas/{id}/complete", s.authenticated(s.handleComplete))
	mux.Handle("GET /api/ideas/{id}/results", s.authenticated(s.handleResults))
	return s.logMiddleware(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("server listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type userKey struct{}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// authenticated rejects requests without a known bearer token before any
// work starts.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		user := s.tokens[strings.TrimSpace(token)]
		if !ok || user == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

// ownedIdea loads the idea and hides ideas of other users behind a 404.
func (s *Server) ownedIdea(w http.ResponseWriter, r *http.Request, id string) (types.IdeaProfile, bool) {
	idea, err := s.store.Idea(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound), err == nil && idea.OwnerID != userID(r.Context()):
		writeError(w, http.StatusNotFound, "idea not found")
		return types.IdeaProfile{}, false
	case err != nil:
		s.logger.Error("loading idea", zap.String("idea", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return types.IdeaProfile{}, false
	}
	return idea, true
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses flushable through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
