// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aiquery-workers/internal/aiquery"
	"aiquery-workers/internal/common/camunda"
	"aiquery-workers/internal/common/config"
	"aiquery-workers/internal/common/database"
	"aiquery-workers/internal/common/logger"
	"aiquery-workers/internal/common/observability"
	"aiquery-workers/internal/store"

	eq "aiquery-workers/internal/workers/ai-query/execute-query"
	lt "aiquery-workers/internal/workers/ai-query/list-templates"
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
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting AI query workers...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()

	tp, err := observability.NewTracerProvider(cfg.Observability.ServiceName, cfg.App.Version, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("tracer provider failed", zap.Error(err))
	}
	defer func() { _ = observability.ShutdownTracer(tp) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Tenant store with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.OpenPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, zapLog, "Database connection")
	if err != nil {
		zapLog.Fatal("database failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("Database connected successfully", zap.String("driver", pg.Driver))

	if cfg.Database.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pg); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		zapLog.Info("Schema migrations applied")
	}

	// --- Redis for the cross-org limiter; the engine runs unlimited without it ---
	engineOpts := []aiquery.Option{
		aiquery.WithConfig(cfg.AIQuery),
		aiquery.WithTracerProvider(tp),
	}
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.OpenRedis(ctx, cfg.Database.Redis)
		return err
	}, 5, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("Redis unavailable, cross-org rate limit disabled", zap.Error(err))
	} else {
		defer redis.Close()
		engineOpts = append(engineOpts, aiquery.WithRateLimiter(
			aiquery.NewRedisRateLimiter(redis.Client, int64(cfg.AIQuery.CrossOrgRateLimitPerHour))))
		zapLog.Info("Redis connected successfully")
	}

	var reader store.Reader = store.NewSQLStore(pg)
	if cfg.AIQuery.SearchBackend == config.SearchBackendElasticsearch {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		reader = store.SearchingReader{
			Reader:   reader,
			Searcher: store.NewElasticsearchSearcher(esClient.Client, cfg.Database.Elasticsearch.ItemIndex),
		}
		zapLog.Info("Elasticsearch item search enabled", zap.String("index", cfg.Database.Elasticsearch.ItemIndex))
	}

	engine, err := aiquery.NewEngine(reader, log, engineOpts...)
	if err != nil {
		zapLog.Fatal("query engine init failed", zap.Error(err))
	}

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	executeCfg := config.GetWorkerConfig(cfg, eq.TaskType)
	listCfg := config.GetWorkerConfig(cfg, lt.TaskType)
	workers := []*camunda.CamundaWorker{
		camunda.NewWorker(zeebe.GetClient(), eq.TaskType, executeCfg,
			eq.NewHandler(eq.LoadConfig(executeCfg), engine, log), log, obs),
		camunda.NewWorker(zeebe.GetClient(), lt.TaskType, listCfg,
			lt.NewHandler(log), log, obs),
	}

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pg.Ping(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "broker unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
