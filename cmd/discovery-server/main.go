package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resource-discovery/internal/api"
	"resource-discovery/internal/common/auth"
	"resource-discovery/internal/common/aws"
	"resource-discovery/internal/common/camunda"
	"resource-discovery/internal/common/config"
	"resource-discovery/internal/common/database"
	httpclient "resource-discovery/internal/common/http"
	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/common/observability"
	"resource-discovery/internal/discovery/audit"
	"resource-discovery/internal/discovery/orchestrator"
	"resource-discovery/internal/discovery/ratelimit"
	"resource-discovery/internal/discovery/reasoning"
	"resource-discovery/internal/discovery/resourcestore"
	"resource-discovery/internal/discovery/usage"
	"resource-discovery/internal/discovery/websearch"
	"resource-discovery/internal/transport/jobworker"
	"resource-discovery/pkg/registry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
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
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting resource discovery service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name, observability.TracingOptions{
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Environment:    cfg.App.Environment,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	var checkers []database.Checker

	// --- Endpoint registry ---
	reg := registry.Default()
	if cfg.Registry.Path != "" {
		reg, err = registry.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			zapLog.Fatal("endpoint registry invalid", zap.Error(err))
		}
	}
	zapLog.Info("Endpoint registry loaded", zap.Strings("endpoints", reg.IDs()))

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Host != "" {
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
		checkers = append(checkers, pg)
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checkers = append(checkers, rdb)
		zapLog.Info("Redis connected successfully")
	}

	// --- Resource store ---
	var store resourcestore.Store
	switch cfg.Resources.Backend {
	case "elasticsearch":
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
		checkers = append(checkers, esClient)
		store = resourcestore.NewElasticsearchStore(esClient.Client, cfg.Resources.Index)
	default:
		store = resourcestore.NewPostgresStore(requirePostgres(pg, zapLog, "resource store").DB)
	}
	if cfg.Resources.CacheTTL > 0 && rdb != nil {
		store = resourcestore.NewCachedStore(store, rdb.Client, time.Duration(cfg.Resources.CacheTTL)*time.Second, log)
	}

	// --- Rate limiter ---
	var counters ratelimit.CounterStore
	switch cfg.RateLimit.Backend {
	case "memory":
		counters = ratelimit.NewMemoryStore()
	case "postgres":
		counters = ratelimit.NewPostgresStore(requirePostgres(pg, zapLog, "rate limit store").DB)
	default:
		counters = ratelimit.NewRedisStore(rdb.Client)
	}
	limiter := ratelimit.NewLimiter(counters, log)

	// --- Upstream clients ---
	reasoner := reasoning.NewClient(reasoning.ConfigFrom(cfg.APIs.Reasoning), log)

	var searcher websearch.Searcher
	if cfg.APIs.WebSearch.Enabled {
		searcher = websearch.NewClient(websearch.ConfigFrom(cfg.APIs.WebSearch), log)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.UserInfoURL != "" {
		var cache redis.Cmdable
		if rdb != nil {
			cache = rdb.Client
		}
		verifier = auth.NewUserInfoVerifier(
			cfg.Auth.UserInfoURL,
			httpclient.NewClient(config.GetDuration(cfg.Auth.Timeout), httpclient.WithMaxRetries(1)),
			cache,
			time.Duration(cfg.Auth.CacheTTL)*time.Second,
			log,
		)
	}

	// --- Usage and audit sinks ---
	var sink usage.Sink = usage.NopSink{}
	if pg != nil {
		sink = usage.NewPostgresSink(pg.DB)
	}
	usageRecorder := usage.NewRecorder(sink, config.GetDuration(cfg.Orchestrator.UsageTimeout), log)

	var recorders audit.Multi
	if cfg.Audit.Enabled && pg != nil {
		recorders = append(recorders, audit.NewPostgresRecorder(pg.DB))
	}
	if cfg.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region, cfg.AWS.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		recorders = append(recorders, audit.NewSNSRecorder(snsClient))
	}
	if cfg.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.AWS.Region, cfg.AWS.SES.Sender)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		recorders = append(recorders, audit.NewEmailRecorder(sesClient, cfg.AWS.SES.Recipients, reg.Tagged("safety-critical")))
	}

	// --- Orchestrator ---
	orch, err := orchestrator.New(orchestrator.ConfigFrom(cfg.Orchestrator), orchestrator.Dependencies{
		Registry: reg,
		Limiter:  limiter,
		Store:    store,
		Reasoner: reasoner,
		Searcher: searcher,
		Usage:    usageRecorder,
		Audit:    recorders,
		Observer: obs,
		Logger:   log,
	})
	if err != nil {
		zapLog.Fatal("orchestrator init failed", zap.Error(err))
	}

	// --- Optional workflow transport ---
	var (
		zeebe  *camunda.Client
		worker *camunda.CamundaWorker
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checkers = append(checkers, zeebe)

		jobCfg := jobworker.ConfigFrom(cfg.Camunda)
		worker = camunda.NewWorker(
			zeebe.GetClient(),
			jobCfg.JobType,
			jobCfg.MaxJobsActive,
			jobCfg.Timeout,
			jobworker.NewHandler(jobCfg, orch, log),
			log,
		)
	}

	// --- HTTP server ---
	handlers := api.NewHandlers(orch, log, checkers...)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handlers, api.RouterOptions{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			Verifier:         verifier,
			TrustedProxyHops: cfg.Server.TrustedProxyHops,
		}, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if worker != nil {
		worker.Stop(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	usageRecorder.Wait()
	orch.Wait()

	zapLog.Info("Resource discovery service stopped gracefully")
}

func requirePostgres(pg *database.PostgresClient, log *zap.Logger, purpose string) *database.PostgresClient {
	if pg == nil {
		log.Fatal("postgres is required", zap.String("purpose", purpose))
	}
	return pg
}
