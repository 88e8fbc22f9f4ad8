// Package main provides the submission service entry point.
// It consumes submission requests and delivers documents to jurisdiction EDRS endpoints.
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
	"github.com/nightingaleproject/go-vrdr/internal/domain/deathrecord"
	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/redpanda"
	"github.com/nightingaleproject/go-vrdr/internal/observability/metrics"
	"github.com/nightingaleproject/go-vrdr/internal/observability/tracing"
	"github.com/nightingaleproject/go-vrdr/internal/submission"
	"github.com/nightingaleproject/go-vrdr/pkg/circuitbreaker"
	"github.com/nightingaleproject/go-vrdr/pkg/idempotency"
)

const serviceName = "submission-service"

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

	inbox := idempotency.NewInbox(pool, idempotency.DefaultInboxConfig(), logger)
	inbox.Start()
	defer inbox.Stop()

	repo := deathrecord.NewRepository(pool, deathrecord.Topics{
		Events:      redpanda.TopicDeathRecordEvents,
		Submissions: redpanda.TopicSubmissionRequests,
	}, logger)

	endpoints, err := cfg.JurisdictionEndpoints()
	if err != nil {
		logger.Fatal("invalid EDRS endpoints", zap.Error(err))
	}
	clientCfg := submission.DefaultClientConfig()
	clientCfg.Endpoint = cfg.EDRSEndpoint
	clientCfg.Endpoints = endpoints
	clientCfg.Timeout = cfg.EDRSTimeout
	clientCfg.MaxRetries = cfg.EDRSMaxRetries
	edrs := submission.NewClient(clientCfg, logger)

	breakers := circuitbreaker.NewManager(circuitbreaker.DefaultConfig("edrs"), logger)

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.Brokers()
	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()

	m := metrics.New(nil)

	svcCfg := submission.DefaultConfig()
	svcCfg.Workers = cfg.WorkerCount
	svc, err := submission.NewService(svcCfg, submission.Deps{
		Records:  repo,
		Inbox:    inbox,
		Registry: edrs,
		Breakers: breakers,
		DLQ:      producer,
		Metrics:  m,
	}, logger)
	if err != nil {
		logger.Fatal("submission service creation failed", zap.Error(err))
	}
	svc.Start()

	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.Brokers()
	consumerCfg.GroupID = cfg.ConsumerGroup
	consumer, err := redpanda.NewConsumer(consumerCfg, svc.Handle, logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		claims, err := inbox.Stats(r.Context())
		if err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		status := "healthy"
		if len(breakers.Open()) > 0 {
			status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"inbox":    claims,
			"status":   status,
			"service":  serviceName,
			"breakers": breakers.Health(),
			"workers":  svc.Stats(),
			"consumer": consumer.Stats(),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Ping(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	})
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	consumer.Start()
	logger.Info("submission service started",
		zap.String("group", consumerCfg.GroupID),
		zap.Int("workers", svcCfg.Workers))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	consumer.Stop()
	svc.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	logger.Info("submission service stopped")
}
