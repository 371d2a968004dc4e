package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walknrun/walkrun-backend/api/routes"
	"github.com/walknrun/walkrun-backend/internal/auth"
	"github.com/walknrun/walkrun-backend/internal/exercise"
	"github.com/walknrun/walkrun-backend/internal/points"
	"github.com/walknrun/walkrun-backend/internal/users"
	"github.com/walknrun/walkrun-backend/pkg/config"
	"github.com/walknrun/walkrun-backend/pkg/identity"
	"github.com/walknrun/walkrun-backend/pkg/logger"
	"github.com/walknrun/walkrun-backend/pkg/mailer"
	"github.com/walknrun/walkrun-backend/pkg/metrics"
	"github.com/walknrun/walkrun-backend/pkg/redis"
	"github.com/walknrun/walkrun-backend/pkg/rtdb"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := rtdb.NewRedisStore(redisClient, cfg.Datastore)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap datastore", err)
		os.Exit(1)
	}

	identityClient, err := identity.NewClient(cfg.Identity)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity client", err)
		os.Exit(1)
	}

	smtpSender, err := mailer.NewSMTPSender(cfg.SMTP)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail sender", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	serviceMetrics := metrics.New(registry)
	policy := points.DefaultPolicy()

	authService, err := auth.NewService(auth.ServiceParams{
		Store:    store,
		Identity: identityClient,
		Mailer:   smtpSender,
		Metrics:  serviceMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	exerciseService, err := exercise.NewService(exercise.ServiceParams{
		Store:   store,
		Policy:  policy,
		Metrics: serviceMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create exercise service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Store:    store,
		Identity: identityClient,
		Policy:   policy,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, registry, authService, exerciseService, usersService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
