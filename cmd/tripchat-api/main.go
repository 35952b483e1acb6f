package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tripchat/tripchat/internal/api"
	"github.com/tripchat/tripchat/internal/auth"
	"github.com/tripchat/tripchat/internal/chat"
	"github.com/tripchat/tripchat/internal/config"
	"github.com/tripchat/tripchat/internal/llm"
	"github.com/tripchat/tripchat/internal/observability"
	sessionpostgres "github.com/tripchat/tripchat/internal/session/postgres"
	"github.com/tripchat/tripchat/internal/sqlguard"
	"github.com/tripchat/tripchat/internal/trips"
)

func main() {
	cfg, err := config.Load("tripchat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	sessionDB, err := sessionpostgres.Open(context.Background(), sessionpostgres.DBConfig{
		DSN:             cfg.Sessions.DSN,
		MaxOpenConns:    cfg.Sessions.MaxOpenConns,
		MaxIdleConns:    cfg.Sessions.MaxIdleConns,
		ConnMaxIdleTime: cfg.Sessions.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Sessions.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open session db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = sessionDB.Close() }()
	sessionStore := sessionpostgres.NewStore(sessionDB)

	policy := sqlguard.NewPolicy(sqlguard.DefaultPolicy().DeniedTokens(), cfg.Trips.Table)
	tripStore, err := trips.Open(context.Background(), trips.Config{
		Path:   cfg.Trips.Path,
		Table:  cfg.Trips.Table,
		RowCap: cfg.Trips.RowCap,
	}, policy)
	if err != nil {
		logger.Error("failed to open trip store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = tripStore.Close() }()
	if err := tripStore.EnsureSchema(context.Background()); err != nil {
		logger.Error("failed to ensure trips schema", slog.Any("error", err))
		os.Exit(1)
	}

	generator, err := llm.NewClient(llm.Config{
		APIKey:             cfg.AI.APIKey,
		BaseURL:            cfg.AI.BaseURL,
		Model:              cfg.AI.Model,
		MaxTokens:          cfg.AI.MaxTokens,
		MaxContextMessages: cfg.Chat.MaxContextMessages,
		Timeout:            cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	chatService := chat.NewService(logger, tripStore, tripStore, generator, sessionStore, chat.Config{
		MaxContextMessages: cfg.Chat.MaxContextMessages,
		MaxDisplayRows:     cfg.Chat.MaxDisplayRows,
	})

	deps := api.Dependencies{
		Logger:   logger,
		Chat:     chatService,
		Sessions: sessionStore,
		Schema:   tripStore,
		Dataset:  tripStore,
		ReadyChecks: []api.NamedCheck{
			{Name: "sessions", Check: sessionStore.HealthCheck},
			{Name: "trips", Check: tripStore.Ping},
		},
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
