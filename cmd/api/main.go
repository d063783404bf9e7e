// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/carterperez-dev/booking-api/internal/admin"
	"github.com/carterperez-dev/booking-api/internal/auth"
	"github.com/carterperez-dev/booking-api/internal/booking"
	"github.com/carterperez-dev/booking-api/internal/config"
	"github.com/carterperez-dev/booking-api/internal/core"
	"github.com/carterperez-dev/booking-api/internal/events"
	"github.com/carterperez-dev/booking-api/internal/health"
	"github.com/carterperez-dev/booking-api/internal/metrics"
	"github.com/carterperez-dev/booking-api/internal/middleware"
	"github.com/carterperez-dev/booking-api/internal/payment"
	"github.com/carterperez-dev/booking-api/internal/server"
	"github.com/carterperez-dev/booking-api/internal/user"
)

const (
	drainDelay      = 5 * time.Second
	amqpDialRetries = 5
	amqpDialDelay   = 2 * time.Second
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	if cfg.Database.AutoMigrate {
		version, migErr := core.Migrate(cfg.Database.URL)
		if migErr != nil {
			return migErr
		}
		logger.Info("database migrated", "version", version)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	probes := []health.Probe{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		amqpPub, amqpErr := events.DialAMQP(
			cfg.Events.URL,
			cfg.Events.Exchange,
			amqpDialRetries,
			amqpDialDelay,
		)
		if amqpErr != nil {
			return amqpErr
		}
		publisher = amqpPub
		probes = append(probes, health.Probe{
			Name:     "broker",
			Checker:  amqpPub,
			Optional: true,
		})
		logger.Info("event publisher connected", "exchange", cfg.Events.Exchange)
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "HS256",
		"rolling_session", cfg.JWT.RollingSession,
	)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, logger)

	if cfg.Admin.BootstrapEmail != "" {
		adminUser, adminErr := userSvc.EnsureAdmin(
			ctx,
			cfg.Admin.BootstrapEmail,
			cfg.Admin.BootstrapPassword,
			cfg.Admin.BootstrapName,
		)
		if adminErr != nil {
			return adminErr
		}
		logger.Info("bootstrap admin ensured", "email", adminUser.Email)
	}

	revocations := auth.NewRevocationStore(redis.Client)
	authSvc := auth.NewService(jwtManager, userSvc, revocations, logger)
	authHandler := auth.NewHandler(authSvc)
	userHandler := user.NewHandler(userSvc, authSvc)

	bookingRepo := booking.NewRepository(db.DB)
	bookingSvc := booking.NewService(bookingRepo, publisher, cfg.Booking, logger)
	bookingHandler := booking.NewHandler(bookingSvc)

	var paymentHandler *payment.Handler
	if cfg.Payment.Enabled {
		coordinator := payment.NewCoordinator(
			bookingSvc,
			userSvc,
			payment.NewCashfreeClient(cfg.Payment),
			payment.NewSessionStore(redis.Client),
			cfg.Payment,
			logger,
		)
		paymentHandler = payment.NewHandler(coordinator, cfg.Payment.WebhookSecret)
		logger.Info("payments enabled",
			"base_url", cfg.Payment.BaseURL,
			"webhook", cfg.Payment.WebhookSecret != "",
		)
	}

	healthHandler := health.NewHandler(probes...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Bookings:   bookingSvc,
		Logger:     logger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		ServiceName:   cfg.App.Name,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin

	var session func(next http.Handler) http.Handler
	if cfg.JWT.RollingSession {
		session = middleware.RollingSession(jwtManager)
	}

	router.Group(func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, session)
		userHandler.RegisterRoutes(r, authenticator, session)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly, session)
		bookingHandler.RegisterRoutes(r, authenticator, session)
		if paymentHandler != nil {
			paymentHandler.RegisterRoutes(r, authenticator, session)
		}
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Error("event publisher close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
