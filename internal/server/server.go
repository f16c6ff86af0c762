// ABOUTME: Reference orbit-server that speaks the chat wire protocol over HTTP
// ABOUTME: Owns the store, middleware chain, responder, and HTTP server lifecycle

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/schmitech/orbit-chat/internal/auth"
	"github.com/schmitech/orbit-chat/internal/config"
	"github.com/schmitech/orbit-chat/internal/dedupe"
	"github.com/schmitech/orbit-chat/internal/store"
)

// threadSweepInterval is how often expired threads are purged.
const threadSweepInterval = time.Minute

// Server serves the chat, history, file, thread, and API key endpoints.
type Server struct {
	config     *config.Config
	store      store.Store
	responder  Responder
	authn      *auth.Authenticator
	verifier   *auth.JWTVerifier // nil when auth.jwt_secret is unset
	replay     *dedupe.Cache
	limiter    *rateLimiter // nil when rate limiting is disabled
	httpServer *http.Server
	logger     *slog.Logger

	now func() time.Time
}

// Option customizes a Server built by NewWithStore.
type Option func(*Server)

// WithResponder replaces the built-in echo responder.
func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// New opens the configured database and builds a Server.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	srv, err := NewWithStore(cfg, s, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return srv, nil
}

// NewWithStore builds a Server on an already opened store. The Server takes
// ownership of st and closes it on Shutdown.
func NewWithStore(cfg *config.Config, st store.Store, logger *slog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		config: cfg,
		store:  st,
		responder: &EchoResponder{
			ChunkWords: cfg.Responder.ChunkWords,
			ChunkDelay: cfg.Responder.ChunkDelay,
		},
		authn:  auth.NewAuthenticator(st, logger),
		replay: dedupe.New(cfg.Replay.TTL, cfg.Replay.MaxEntries),
		logger: logger.With("component", "server"),
		now:    time.Now,
	}

	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			srv.replay.Close()
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		srv.verifier = v
	} else {
		srv.logger.Warn("auth.jwt_secret not set, /admin/api-keys is disabled")
	}

	if cfg.Limits.RequestsPerSecond > 0 {
		srv.limiter = newRateLimiter(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// Handler returns the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/chat", s.handleChat)
	api.HandleFunc("GET /admin/chat-history/{session_id}", s.handleGetHistory)
	api.Handle("DELETE /admin/chat-history/{session_id}", auth.RequireAPIKey(http.HandlerFunc(s.handleClearHistory)))
	api.HandleFunc("POST /api/files/upload", s.handleUploadFile)
	api.HandleFunc("GET /api/files", s.handleListFiles)
	api.HandleFunc("GET /api/files/{file_id}", s.handleGetFile)
	api.HandleFunc("DELETE /api/files/{file_id}", s.handleDeleteFile)
	api.HandleFunc("POST /api/threads", s.handleCreateThread)
	api.HandleFunc("GET /api/threads/{thread_id}", s.handleGetThread)
	api.HandleFunc("DELETE /api/threads/{thread_id}", s.handleDeleteThread)

	var apiHandler http.Handler = api
	apiHandler = dedupe.Middleware(s.replay, replayScope, s.logger)(apiHandler)
	if s.limiter != nil {
		apiHandler = rateLimitMiddleware(s.limiter, s.logger)(apiHandler)
	}
	apiHandler = auth.APIKeyMiddleware(s.authn, s.config.Auth.RequireAPIKey, s.logger)(apiHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	mux.Handle("/v1/", apiHandler)
	mux.Handle("/api/", apiHandler)
	mux.Handle("/admin/chat-history/", apiHandler)

	if s.verifier != nil {
		admin := http.NewServeMux()
		admin.HandleFunc("GET /admin/api-keys", s.handleListAPIKeys)
		admin.HandleFunc("POST /admin/api-keys", s.handleCreateAPIKey)
		admin.HandleFunc("DELETE /admin/api-keys/{prefix}", s.handleDeactivateAPIKey)
		mux.Handle("/admin/api-keys", auth.AdminMiddleware(s.verifier)(admin))
		mux.Handle("/admin/api-keys/", auth.AdminMiddleware(s.verifier)(admin))
	}

	return loggingMiddleware(s.logger)(mux)
}

// replayScope namespaces request IDs by API key so callers cannot collide.
func replayScope(r *http.Request) string {
	if prefix := auth.KeyPrefixFromContext(r.Context()); prefix != "" {
		return prefix
	}
	return "anonymous"
}

// Run listens on the configured address and serves until ctx is canceled.
// Returns nil on graceful shutdown, or the error that stopped the server.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepThreads(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	// the parent context is already done, so shutdown gets its own deadline
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := s.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// Shutdown stops the HTTP server and releases the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	s.replay.Close()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	return errors.Join(errs...)
}

func (s *Server) sweepThreads(ctx context.Context) {
	ticker := time.NewTicker(threadSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.store.DeleteExpiredThreads(ctx, s.now()); err != nil && ctx.Err() == nil {
				s.logger.Error("failed to delete expired threads", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady returns 200 OK once the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sendError writes the {"detail": ...} body clients surface as the error message.
func sendError(w http.ResponseWriter, status int, detail string) {
	auth.WriteError(w, status, detail)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
