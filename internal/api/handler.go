package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripchat/tripchat/internal/chat"
	"github.com/tripchat/tripchat/internal/config"
	"github.com/tripchat/tripchat/internal/observability"
	"github.com/tripchat/tripchat/internal/query"
	"github.com/tripchat/tripchat/internal/session"
	"github.com/tripchat/tripchat/internal/trips"
)

const serviceVersion = "1.0.0"

type ReadinessCheck func(ctx context.Context) error

// NamedCheck labels a readiness probe so /v1/ready can report which
// dependency is degraded.
type NamedCheck struct {
	Name  string
	Check ReadinessCheck
}

// ChatService runs one conversational turn. *chat.Service is the production
// implementation.
type ChatService interface {
	ProcessMessage(ctx context.Context, req chat.Request) chat.Outcome
}

// DatasetStatsProvider summarizes the loaded trip data.
type DatasetStatsProvider interface {
	Stats(ctx context.Context) (trips.DatasetStats, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Chat              ChatService
	Sessions          session.Store
	Schema            query.SchemaProvider
	Dataset           DatasetStatsProvider
	ReadyChecks       []NamedCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "AI Chatbot Service API",
			"version": serviceVersion,
			"status":  "running",
		})
	})

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		handleReady(deps, w, r)
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	mux.HandleFunc("GET /v1/dataset/stats", func(w http.ResponseWriter, r *http.Request) {
		handleDatasetStats(deps, w, r)
	})

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	protected.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(deps, w, r)
	})
	protected.HandleFunc("GET /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleListSessions(deps, w, r)
	})
	protected.HandleFunc("GET /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetSession(deps, w, r)
	})
	protected.HandleFunc("GET /v1/sessions/{id}/stats", func(w http.ResponseWriter, r *http.Request) {
		handleSessionStats(deps, w, r)
	})
	protected.HandleFunc("DELETE /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteSession(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/chat", protectedHandler)
	mux.Handle("POST /v1/sessions", protectedHandler)
	mux.Handle("GET /v1/sessions", protectedHandler)
	mux.Handle("GET /v1/sessions/{id}", protectedHandler)
	mux.Handle("GET /v1/sessions/{id}/stats", protectedHandler)
	mux.Handle("DELETE /v1/sessions/{id}", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	// CORS sits inside logging so preflights are traced, and outside auth so
	// preflights never need an API key.
	middlewares = append(middlewares, cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	return chain(mux, middlewares...)
}

func handleReady(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if len(deps.ReadyChecks) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	checks := make(map[string]string, len(deps.ReadyChecks))
	healthy := true
	for _, check := range deps.ReadyChecks {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			checks[check.Name] = err.Error()
			healthy = false
			continue
		}
		checks[check.Name] = "ok"
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": checks})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
