package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/labdiagnostica/platform/cmd/mainconfig"
	"github.com/labdiagnostica/platform/internal/api/router"
	"github.com/labdiagnostica/platform/internal/appointments"
	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/internal/chat"
	appconfig "github.com/labdiagnostica/platform/internal/config"
	"github.com/labdiagnostica/platform/internal/notify"
	"github.com/labdiagnostica/platform/internal/observability/metrics"
	"github.com/labdiagnostica/platform/internal/results"
	"github.com/labdiagnostica/platform/internal/schedule"
	"github.com/labdiagnostica/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting labdiagnostica platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The audit log uses database/sql so it can share the pgx stdlib
	// driver with the migration tooling.
	auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = auditDB.Close() }()

	auditService := audit.NewService(auditDB, logger.Named("audit"))

	registry := prometheus.NewRegistry()
	scheduleMetrics := metrics.NewScheduleMetrics(registry)
	bookingMetrics := metrics.NewBookingMetrics(registry)
	chatMetrics := metrics.NewChatMetrics(registry)

	// Scheduling core.
	scheduleStore := schedule.NewPostgresStore(pool)
	resolver, err := schedule.NewResolver(schedule.Config{
		Grid: schedule.GridConfig{
			Start: cfg.ScheduleStart,
			End:   cfg.ScheduleEnd,
			Step:  cfg.ScheduleStep,
		},
		DefaultLocation: cfg.DefaultLocation,
		UTCOffset:       cfg.ClinicUTCOffset,
	}, scheduleStore, scheduleStore, scheduleStore)
	if err != nil {
		logger.Error("failed to build availability resolver", "error", err)
		os.Exit(1)
	}
	scheduleHandler := schedule.NewHandler(resolver, scheduleStore, auditService, scheduleMetrics, logger.Named("schedule"))

	// Email delivery.
	mailer := buildEmailSender(ctx, cfg, logger)

	// Booking.
	apptRepo := appointments.NewRepository(pool)
	apptService := appointments.NewService(apptRepo, resolver, mailer, auditService, bookingMetrics, appointments.ServiceConfig{
		DefaultLocation: cfg.DefaultLocation,
		UTCOffset:       cfg.ClinicUTCOffset,
	}, logger.Named("appointments"))
	apptHandler := appointments.NewHandler(apptService, logger.Named("appointments"))

	// Results portal.
	resultsRepo := results.NewRepository(pool)
	resultsService := results.NewService(resultsRepo, mailer, auditService, logger.Named("results"))
	resultsHandler := results.NewHandler(resultsService, logger.Named("results"))

	// Assistant.
	chatHandler := buildChatHandler(ctx, cfg, auditService, chatMetrics, logger)

	auditHandler := audit.NewHandler(auditService, logger.Named("audit"))

	r := router.New(&router.Config{
		Logger:              logger,
		ScheduleHandler:     scheduleHandler,
		AppointmentsHandler: apptHandler,
		ResultsHandler:      resultsHandler,
		ChatHandler:         chatHandler,
		AuditHandler:        auditHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatRatePerSec:      cfg.ChatRatePerSec,
		ChatRateBurst:       cfg.ChatRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger.Named("notify"))
		if sender != nil {
			return sender
		}
		logger.Error("sendgrid selected but not configured, falling back to stub")
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config for SES, falling back to stub", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger.Named("notify"))
		if sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger.Named("notify"))
}

func buildChatHandler(ctx context.Context, cfg *appconfig.Config, auditService *audit.Service, m *metrics.ChatMetrics, logger *logging.Logger) *chat.Handler {
	var primary chat.LLMClient
	if cfg.BedrockModelID != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config for bedrock", "error", err)
		} else {
			primary = chat.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
		}
	}

	var fallback chat.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := chat.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
		} else {
			fallback = gemini
		}
	}

	var history chat.Historian
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		history = chat.NewHistoryStore(redis.NewClient(opts), nil, cfg.ChatHistoryTTL)
	}

	service := chat.NewService(primary, fallback, history, auditService, m, chat.ServiceConfig{
		BedrockModelID: cfg.BedrockModelID,
		MaxTokens:      int32(cfg.ChatMaxTokens),
		Temperature:    float32(cfg.ChatTemperature),
	}, logger.Named("chat"))

	return chat.NewHandler(service, logger.Named("chat"))
}
