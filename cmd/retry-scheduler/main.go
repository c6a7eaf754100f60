// cmd/retry-scheduler/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"notification-pipeline/internal/common/config"
	"notification-pipeline/internal/common/database"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/queue"
	"notification-pipeline/internal/scheduler"
	"notification-pipeline/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting retry scheduler...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Kafka producer with retry ---
	var producer *queue.Producer
	err = retryWithBackoff(func() error {
		var err error
		producer, err = queue.NewProducer(cfg.Kafka)
		return err
	}, 10, 2*time.Second, zapLog, "Kafka producer initialization")

	if err != nil {
		zapLog.Fatal("kafka producer failed after retries", zap.Error(err))
	}
	defer producer.Close()
	zapLog.Info("Kafka producer connected successfully")

	// --- Wire the sweeps ---
	notifications := store.NewNotificationStore(pg.DB)
	logs := store.NewDeliveryLogStore(pg.DB)

	sweeper := scheduler.NewSweeper(notifications, logs, producer, log, cfg.Scheduler)

	sched, err := scheduler.New(
		config.GetDuration(cfg.Scheduler.PollInterval),
		sweeper.Sweep,
		log,
	)
	if err != nil {
		zapLog.Fatal("scheduler init failed", zap.Error(err))
	}
	sched.Start()

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.MetricsAddr))
		if err := http.ListenAndServe(cfg.App.MetricsAddr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping scheduler...")
	sched.Stop()

	zapLog.Info("Retry scheduler stopped gracefully")
}
