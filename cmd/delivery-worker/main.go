// cmd/delivery-worker/main.go
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

	"notification-pipeline/internal/aggregate"
	"notification-pipeline/internal/common/config"
	"notification-pipeline/internal/common/database"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/common/observability"
	"notification-pipeline/internal/delivery"
	"notification-pipeline/internal/provider"
	"notification-pipeline/internal/queue"
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

	zapLog.Info("Starting delivery worker...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("delivery-worker")
	defer obs.Shutdown()

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

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init AWS providers ---
	registry, err := provider.NewRegistryFromConfig(ctx, cfg.Providers)
	if err != nil {
		zapLog.Fatal("provider registry failed", zap.Error(err))
	}
	zapLog.Info("Channel providers initialized")

	// --- Wire the delivery pipeline ---
	notifications := store.NewNotificationStore(pg.DB)
	recipients := store.NewRecipientStore(pg.DB)
	logs := store.NewDeliveryLogStore(pg.DB)
	deadLetters := store.NewDeadLetterStore(pg.DB)
	aggregates := store.NewAggregateStore(pg.DB)

	sink := aggregate.NewSink(aggregates, log)
	var indexer *aggregate.LogIndexer
	if esClient != nil {
		indexer = aggregate.NewLogIndexer(esClient, cfg.Database.Elasticsearch.LogIndex, log)
	}

	worker := delivery.NewWorker(
		notifications, recipients, logs, deadLetters,
		registry, sink, indexer, obs, log,
		config.GetDuration(cfg.Delivery.SendTimeout),
	)

	consumer, err := queue.NewConsumer(
		cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.Topic,
		worker, log,
	)
	if err != nil {
		zapLog.Fatal("consumer init failed", zap.Error(err))
	}
	defer consumer.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := consumer.Run(runCtx); err != nil && runCtx.Err() == nil {
			zapLog.Fatal("consumer stopped", zap.Error(err))
		}
	}()
	zapLog.Info("Delivery worker consuming", zap.String("topic", cfg.Kafka.Topic))

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

	zapLog.Info("Shutdown signal received, stopping consumer...")
	cancel()

	zapLog.Info("Delivery worker stopped gracefully")
}
