package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/db"
	"github.com/jonathan/openpay/internal/pipeline"
	"github.com/jonathan/openpay/internal/server/middleware"
	"github.com/jonathan/openpay/internal/server/ratelimit"
	"github.com/jonathan/openpay/internal/types"
)

// SalaryService is the part of the pipeline the API exposes.
type SalaryService interface {
	Salaries(ctx context.Context, f types.SalaryFilter) ([]types.CleanedSalaryRecord, error)
	CommunitySalaries(ctx context.Context, country string) ([]types.CleanedSalaryRecord, error)
	Titles(ctx context.Context) ([]string, error)
	Suggest(ctx context.Context, query string, limit int) ([]string, error)
	Search(ctx context.Context, query string) (*pipeline.Report, error)
	SearchWithProgress(ctx context.Context, query string, onProgress pipeline.ProgressCallback) (*pipeline.Report, error)
	MatchJobs(ctx context.Context, skills types.UserSkills) (*types.JobMatcherResponse, error)
	ParseDescription(ctx context.Context, description string) ([]types.JobSuggestion, error)
	AddSalary(ctx context.Context, sub types.SalarySubmission) (*types.SalaryRecord, error)
	UpdateSalary(ctx context.Context, id string, patch db.SalaryPatch) (*types.SalaryRecord, error)
	DeleteSalary(ctx context.Context, id string) error
	Refresh(ctx context.Context) (int, error)
}

// Config holds server configuration
type Config struct {
	Port                  int
	AllowedOrigins        []string
	ModeratorPasswordHash string
	ShutdownTimeout       time.Duration
}

// ConfigFrom extracts the server settings of the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Port:                  cfg.Port,
		AllowedOrigins:        cfg.AllowedOrigins,
		ModeratorPasswordHash: cfg.ModeratorPasswordHash,
	}
}

// Deps are the collaborators of the server. Tokens and Passwords may be nil, in
// which case the moderation endpoints answer 503.
type Deps struct {
	Service   SalaryService
	Tokens    *JWTService
	Passwords *config.PasswordConfig
	Limiter   *ratelimit.Limiter
	Logger    *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	cfg         Config
	service     SalaryService
	tokens      *JWTService
	passwords   *config.PasswordConfig
	rateLimiter *ratelimit.Limiter
	logger      *slog.Logger
	handler     http.Handler
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}

	s := &Server{
		cfg:         cfg,
		service:     deps.Service,
		tokens:      deps.Tokens,
		passwords:   deps.Passwords,
		rateLimiter: deps.Limiter,
		logger:      deps.Logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// salary data
	mux.HandleFunc("GET /salaries", s.handleSalaries)
	mux.HandleFunc("GET /salaries/community", s.handleCommunitySalaries)
	mux.HandleFunc("POST /salaries", s.handleAddSalary)
	mux.HandleFunc("GET /titles", s.handleTitles)
	mux.HandleFunc("GET /titles/suggest", s.handleSuggest)

	// reports and matching
	mux.HandleFunc("GET /statistics", s.handleStatistics)
	mux.HandleFunc("GET /statistics/stream", s.handleStatisticsStream)
	mux.HandleFunc("POST /jobs/describe", s.handleDescribe)
	mux.HandleFunc("POST /jobs/match", s.handleMatch)

	// moderation
	mux.HandleFunc("POST /auth/token", s.handleToken)
	mux.Handle("PUT /salaries/{id}", s.moderator(http.HandlerFunc(s.handleUpdateSalary)))
	mux.Handle("DELETE /salaries/{id}", s.moderator(http.HandlerFunc(s.handleDeleteSalary)))
	mux.Handle("POST /cache/refresh", s.moderator(http.HandlerFunc(s.handleRefresh)))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	return s
}

// Handler returns the root handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on the configured port until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // searches may wait on the completion service
		IdleTimeout:       60 * time.Second,
	}
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

// moderator guards next with a moderator bearer token.
func (s *Server) moderator(next http.Handler) http.Handler {
	if s.tokens == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			s.errorResponse(w, http.StatusServiceUnavailable, "moderation is not configured")
		})
	}
	return middleware.RequireRole(s.tokens.AsTokenValidator(), RoleModerator)(next)
}

// withCORS answers preflight requests and sets the allowed origin.
func (s *Server) withCORS(next http.Handler) http.Handler {
	wildcard := slices.Contains(s.cfg.AllowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.cfg.AllowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects requests over the per-client limit with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush lets streaming handlers flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", s.extractClientID(r),
		)
	})
}

// extractClientID identifies the client by the IP of RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Trop de requêtes, veuillez réessayer plus tard.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded", "client", s.extractClientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// -----------------------------------------------------------------------------
// Responses
// -----------------------------------------------------------------------------

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to its status and writes it. Server-side failures are logged.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.errorResponse(w, status, errorMessage(err))
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: strings.TrimPrefix(err.Error(), "json: ")}
	}
	return nil
}
