// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	esadapter "care-match-workers/internal/adapters/elasticsearch"
	pgadapter "care-match-workers/internal/adapters/postgres"
	redisadapter "care-match-workers/internal/adapters/redis"
	"care-match-workers/internal/common/aws"
	"care-match-workers/internal/common/camunda"
	"care-match-workers/internal/common/config"
	"care-match-workers/internal/common/database"
	"care-match-workers/internal/common/logger"
	"care-match-workers/internal/common/metrics"
	"care-match-workers/internal/common/observability"
	"care-match-workers/internal/common/validation"
	"care-match-workers/internal/matching"
	"care-match-workers/pkg/registry"

	rr "care-match-workers/internal/workers/matching/reorder-recommendations"
	rmp "care-match-workers/internal/workers/matching/run-match-pipeline"
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
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	var tracing *observability.Tracing
	if cfg.Tracing.Enabled {
		tracing, err = observability.NewTracing(cfg.App.Name, cfg.Tracing.CollectorEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			zapLog.Fatal("tracing init failed", zap.Error(err))
		}
		zapLog.Info("tracing enabled",
			zap.String("collector", cfg.Tracing.CollectorEndpoint),
			zap.Float64("sampleRatio", cfg.Tracing.SampleRatio),
		)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			zapLog.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()
	tracer := tracing.Tracer(cfg.App.Name)

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

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

	// --- Init Elasticsearch with retry ---
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
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Matching engine ---
	deps := matching.Dependencies{
		Requests: pgadapter.NewRequestRepository(pg.DB),
		Source: esadapter.NewCandidateSource(esClient.Client, esadapter.Config{
			OrganisationsIndex: cfg.Matching.OrganisationsIndex,
			WorkersIndex:       cfg.Matching.WorkersIndex,
			Size:               cfg.Matching.SearchSize,
		}, log),
		Store:           pgadapter.NewStore(pg.DB),
		Contexts:        redisadapter.NewContextCache(redis.Client, pgadapter.NewContextSource(pg.DB), cfg.Matching.ContextCacheTTL(), log),
		Recommendations: pgadapter.NewRecommendationStore(pg.DB),
		Evidence:        pgadapter.NewEvidenceCounter(pg.DB),
		Recorder:        metrics.PipelineRecorder{},
		Logger:          log,
	}

	if cfg.Events.SNS.Enabled {
		publisher, err := aws.NewSNSClient(ctx, cfg.Events.SNS.Region, cfg.Events.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		deps.Events = publisher
		zapLog.Info("Recommendation events enabled", zap.String("topicArn", cfg.Events.SNS.TopicARN))
	}

	pipeline := matching.NewPipeline(matching.PipelineConfig{
		TopN:                 cfg.Matching.TopN,
		DefaultMaxDistanceKm: cfg.Matching.DefaultMaxDistanceKm,
	}, deps)

	reg, err := registry.Load()
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	validator, err := validation.NewSchemaValidator(reg)
	if err != nil {
		zapLog.Fatal("schema compilation failed", zap.Error(err))
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker

	pipelineHandler, err := rmp.NewHandler(rmp.HandlerOptions{
		AppConfig: cfg,
		Pipeline:  pipeline,
		Validator: validator,
		Recorder:  obs,
		Tracer:    tracer,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create run-match-pipeline handler", zap.Error(err))
	}
	if pipelineHandler.Config().Enabled {
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      rmp.TaskType,
			MaxJobsActive: pipelineHandler.Config().MaxJobsActive,
			Timeout:       pipelineHandler.Config().Timeout,
		}, pipelineHandler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", rmp.TaskType))
	}

	reorderHandler, err := rr.NewHandler(rr.HandlerOptions{
		AppConfig: cfg,
		Reorderer: matching.NewReorderer(),
		Validator: validator,
		Recorder:  obs,
		Tracer:    tracer,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create reorder-recommendations handler", zap.Error(err))
	}
	if reorderHandler.Config().Enabled {
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      rr.TaskType,
			MaxJobsActive: reorderHandler.Config().MaxJobsActive,
			Timeout:       reorderHandler.Config().Timeout,
		}, reorderHandler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", rr.TaskType))
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health / Metrics server ---
	readiness := func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return pg.Ping(gctx) })
		g.Go(func() error { return redis.Ping(gctx) })
		g.Go(func() error { return esClient.Ping(gctx) })
		g.Go(func() error { return zeebe.HealthCheck(gctx) })
		return g.Wait()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HealthPort),
		Handler:           newHealthMux(readiness),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// newHealthMux serves liveness, readiness and Prometheus metrics.
func newHealthMux(ready func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", "")
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := ready(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready", "")
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status, reason string) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if reason != "" {
		body["error"] = reason
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
