// Mindora patient risk monitor API server.
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mindoraRwanda/mindorabeta/internal/api"
	"github.com/mindoraRwanda/mindorabeta/internal/config"
	"github.com/mindoraRwanda/mindorabeta/internal/identity"
	"github.com/mindoraRwanda/mindorabeta/internal/logging"
	"github.com/mindoraRwanda/mindorabeta/internal/middleware"
	"github.com/mindoraRwanda/mindorabeta/internal/monitoring"
	"github.com/mindoraRwanda/mindorabeta/internal/notification"
	"github.com/mindoraRwanda/mindorabeta/internal/presence"
	"github.com/mindoraRwanda/mindorabeta/internal/realtime"
	"github.com/mindoraRwanda/mindorabeta/internal/report"
	"github.com/mindoraRwanda/mindorabeta/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logCloser, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		slog.Error("Failed to configure logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "db_driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.Open(cfg.Database.Driver, cfg.DatabaseSource())
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	checks := map[string]api.Pinger{"database": repo}

	var (
		presenceStore presence.Store = presence.NewMemoryStore()
		locker        monitoring.Locker
	)
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		presenceStore = presence.NewRedisStore(client, presence.DefaultRedisKey)
		locker = monitoring.NewRedisLocker(client)
		checks["redis"] = api.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		slog.Info("Redis connected, presence and monitoring locks are shared")
	} else {
		slog.Info("REDIS_URL not set, presence and monitoring locks are process-local")
	}

	hub := realtime.NewHub()

	var publisher notification.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := notification.ConnectNATS(cfg.NATSURL)
		if err != nil {
			slog.Warn("Failed to connect to NATS, notifications will not be published", "error", err)
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
			if _, err := natsPublisher.Relay(hub); err != nil {
				slog.Error("Failed to subscribe to notifications", "error", err)
				os.Exit(1)
			}
			slog.Info("NATS connected, relaying notifications from other processes")
		}
	}

	// Initialize services.
	notifier := notification.NewService(repo, hub, publisher)
	monitor := monitoring.NewService(repo, notifier, locker, monitoring.Options{
		Workers:        cfg.Monitor.Workers,
		PatientTimeout: cfg.Monitor.PatientTimeout,
	})
	verifier := identity.NewVerifier(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo)
	healthHandler := api.NewHealthHandler(checks)
	monitoringHandler := api.NewMonitoringHandler(baseHandler, monitor, report.NewRenderer(cfg.ReportFontPath))
	activityHandler := api.NewActivityHandler(baseHandler)
	notificationHandler := api.NewNotificationHandler(baseHandler)
	presenceHandler := api.NewPresenceHandler(presenceStore)
	wsHandler := realtime.NewHandler(hub, presenceStore, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(verifier))
		r.Use(middleware.RateLimit(limiter))

		monitoringHandler.RegisterRoutes(r)
		activityHandler.RegisterRoutes(r)
		notificationHandler.RegisterRoutes(r)
		presenceHandler.RegisterRoutes(r)
	})

	// WebSocket endpoint.
	r.With(identity.Middleware(verifier)).Get("/ws", wsHandler.ServeHTTP)

	// Create server.
	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start daily monitoring worker.
	if cfg.Monitor.Enabled {
		offset, err := monitoring.ParseTimeOfDay(cfg.Monitor.RunAt)
		if err != nil {
			slog.Error("Invalid monitoring schedule", "error", err)
			os.Exit(1)
		}
		monitoring.StartDailyWorker(ctx, monitor, offset, notifier, cfg.NotificationRetention)
	} else {
		slog.Info("Daily monitoring disabled (MONITOR_ENABLED=false)")
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
