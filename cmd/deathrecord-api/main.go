// Package main provides the death record API service entry point.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/api/handlers"
	"github.com/nightingaleproject/go-vrdr/internal/api/middleware"
	"github.com/nightingaleproject/go-vrdr/internal/config"
	"github.com/nightingaleproject/go-vrdr/internal/domain/deathrecord"
	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/postgres"
	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/redpanda"
	"github.com/nightingaleproject/go-vrdr/internal/observability/metrics"
	"github.com/nightingaleproject/go-vrdr/internal/observability/tracing"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/record"
)

const serviceName = "deathrecord-api"

// maxRequestBytes caps wizard answers and Patient bodies.
const maxRequestBytes = 2 << 20

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
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}
	logger.Info("connected to database")

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid death timezone", zap.Error(err))
	}
	apiKeys, err := cfg.APIKeyClients()
	if err != nil {
		logger.Fatal("invalid api keys", zap.Error(err))
	}

	repo := deathrecord.NewRepository(pool, deathrecord.Topics{
		Events:      redpanda.TopicDeathRecordEvents,
		Submissions: redpanda.TopicSubmissionRequests,
	}, logger)

	m := metrics.New(nil)
	assembler := document.NewAssembler(document.Config{
		IDs:      document.UUIDGenerator{},
		Location: loc,
	}, logger)
	mapper := record.NewMapper(loc)
	mapper.Logger = logger.Named("mapper")
	builder := record.NewBuilder(mapper, assembler)

	recordHandler := handlers.NewDeathRecordHandler(repo, builder, m, logger)
	documentHandler := handlers.NewDocumentHandler(builder, m, logger)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing(serviceName))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Ping(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if len(apiKeys) > 0 {
			r.Use(middleware.APIKeyAuth(apiKeys))
		} else if !cfg.IsDev() {
			logger.Fatal("API_KEYS is required outside development")
		} else {
			logger.Warn("API_KEYS not set, /api/v1 is unauthenticated")
		}
		r.Use(middleware.FHIRContent(maxRequestBytes))
		r.Mount("/death-records", recordHandler.Routes())
		r.Mount("/documents", documentHandler.Routes())
		r.Get("/valuesets", handlers.ValueSets)
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting death record API", zap.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}
