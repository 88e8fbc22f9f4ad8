// Package main provides the outbox relay service entry point.
// It publishes death record events written by the API to Redpanda.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/config"
	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/postgres"
	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/redpanda"
	"github.com/nightingaleproject/go-vrdr/internal/observability/metrics"
	"github.com/nightingaleproject/go-vrdr/internal/observability/tracing"
)

const serviceName = "outbox-relay"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		zap.L().Fatal("invalid config", zap.Error(err))
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		zap.L().Fatal("build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx := context.Background()

	tcfg := tracing.DefaultConfig(serviceName)
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(ctx, tcfg)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer tp.Shutdown(ctx)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	brokers := cfg.Brokers()
	admin, err := redpanda.NewAdmin(brokers, logger)
	if err != nil {
		logger.Fatal("admin client creation failed", zap.Error(err))
	}
	created, err := admin.EnsureTopics(ctx, 1)
	admin.Close()
	if err != nil {
		logger.Fatal("topic creation failed", zap.Error(err))
	}
	if len(created) > 0 {
		logger.Info("created topics", zap.Strings("topics", created))
	}

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = brokers
	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()
	logger.Info("connected to Redpanda", zap.Strings("brokers", brokers))

	outboxCfg := postgres.DefaultOutboxConfig()
	outboxCfg.BatchSize = cfg.OutboxBatchSize
	outboxCfg.PollInterval = cfg.OutboxPollInterval
	outboxCfg.DeadLetterTopic = redpanda.TopicOutboxDeadLetter
	outbox := postgres.NewOutbox(pool, producer, outboxCfg, logger)

	m := metrics.New(nil)
	statsCtx, stopStats := context.WithCancel(ctx)
	go reportStats(statsCtx, outbox, m, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats, err := outbox.Stats(r.Context())
		if err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"outbox":   stats,
			"producer": producer.Stats(),
		})
	})
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	outbox.Start()
	logger.Info("outbox relay started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	stopStats()
	outbox.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	logger.Info("outbox relay stopped")
}

// reportStats refreshes the pending gauge and prunes published entries.
func reportStats(ctx context.Context, outbox *postgres.Outbox, m *metrics.Metrics, logger *zap.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	lastCleanup := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stats, err := outbox.Stats(ctx); err == nil {
				m.OutboxPending.Set(float64(stats.Pending))
			} else {
				logger.Warn("outbox stats failed", zap.Error(err))
			}

			if time.Since(lastCleanup) >= time.Hour {
				lastCleanup = time.Now()
				n, err := outbox.Prune(ctx, 7*24*time.Hour)
				if err != nil {
					logger.Warn("outbox cleanup failed", zap.Error(err))
				} else if n > 0 {
					logger.Info("pruned published outbox entries", zap.Int64("count", n))
				}
			}
		}
	}
}
