package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-gateway-auth/internal/config"
	"github.com/go-gateway-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-gateway-auth/internal/infrastructure/jwt"
	"github.com/go-gateway-auth/internal/infrastructure/keycloak"
	redisinfra "github.com/go-gateway-auth/internal/infrastructure/redis"
	s3infra "github.com/go-gateway-auth/internal/infrastructure/s3"
	"github.com/go-gateway-auth/internal/infrastructure/smtp"
	"github.com/go-gateway-auth/internal/infrastructure/sns"
	"github.com/go-gateway-auth/internal/pkg/mailtmpl"
	"github.com/go-gateway-auth/internal/pkg/metrics"
	transporthttp "github.com/go-gateway-auth/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	templateRepo := dynamo.NewTemplateRepo(dynamoClient, cfg.DynamoTables.EmailTemplates)
	var templates transporthttp.TemplateSource = templateRepo
	switch cfg.EmailTemplateSource {
	case "s3":
		templates = s3infra.NewTemplateStore(s3infra.NewClient(cfg), cfg.S3BucketName, cfg.S3TemplatePrefix)
	default:
		dynamo.SeedTemplates(ctx, templateRepo, mailtmpl.Defaults)
	}

	var sessions transporthttp.SessionRepository = dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	if cfg.SessionBackend == "redis" {
		rdb, err := redisinfra.NewClient(cfg.RedisURL)
		if err != nil {
			slog.Error("redis unavailable", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		sessions = redisinfra.NewSessionStore(rdb)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("session signing keys not available", "err", err)
		os.Exit(1)
	}

	// SNS admin topic (optional; graceful fallback).
	adminTopic, err := sns.NewAdminPublisher(cfg)
	if err != nil {
		slog.Warn("SNS admin topic not available", "err", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &transporthttp.Deps{
		Verifications: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.EmailVerifications),
		Templates:     templates,
		Sessions:      sessions,
		Groups:        dynamo.NewGroupRepo(dynamoClient, cfg.DynamoTables.Groups),
		IAM:           keycloak.NewAdminClient(ctx, cfg.Keycloak),
		Authenticator: keycloak.NewAuthenticator(ctx, cfg.Keycloak),
		SessionCodec:  jwtProvider,
		Mailer:        smtp.NewMailer(cfg),
		AdminTopic:    adminTopic,
		Metrics:       metrics.New(registry),
	}

	router, err := transporthttp.NewRouter(cfg, deps)
	if err != nil {
		slog.Error("failed to build router", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		return
	}
	slog.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
