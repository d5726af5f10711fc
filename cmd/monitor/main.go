// Command monitor runs a single daily monitoring pass and exits. It is meant
// for external schedulers when the server's built-in worker is disabled.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mindoraRwanda/mindorabeta/internal/config"
	"github.com/mindoraRwanda/mindorabeta/internal/logging"
	"github.com/mindoraRwanda/mindorabeta/internal/monitoring"
	"github.com/mindoraRwanda/mindorabeta/internal/notification"
	"github.com/mindoraRwanda/mindorabeta/internal/store"
)

func main() {
	purge := flag.Bool("purge", false, "also delete read notifications older than NOTIFICATION_RETENTION")
	flag.Parse()

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *purge); err != nil {
		slog.Error("Monitoring run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, purge bool) error {
	repo, err := store.Open(cfg.Database.Driver, cfg.DatabaseSource())
	if err != nil {
		return err
	}
	defer repo.Close()

	var locker monitoring.Locker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer client.Close()
		locker = monitoring.NewRedisLocker(client)
	}

	var publisher notification.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := notification.ConnectNATS(cfg.NATSURL)
		if err != nil {
			slog.Warn("Failed to connect to NATS, alerts will only be stored", "error", err)
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
		}
	}

	// No websocket hub in this process. Servers relay the NATS publish to
	// connected therapists; without NATS alerts show up on inbox refresh.
	notifier := notification.NewService(repo, nil, publisher)
	svc := monitoring.NewService(repo, notifier, locker, monitoring.Options{
		Workers:        cfg.Monitor.Workers,
		PatientTimeout: cfg.Monitor.PatientTimeout,
	})

	result, err := svc.RunDailyMonitoringPass(ctx)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		return err
	}

	if purge {
		deleted, err := notifier.PurgeRead(ctx, cfg.NotificationRetention)
		if err != nil {
			return err
		}
		slog.Info("Notification cleanup completed", "deleted", deleted)
	}
	return nil
}
