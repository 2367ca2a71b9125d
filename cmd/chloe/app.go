package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aescanero/chloe/internal/application/agent"
	"github.com/aescanero/chloe/internal/application/limiter"
	"github.com/aescanero/chloe/internal/application/orchestrator"
	"github.com/aescanero/chloe/internal/application/structured"
	"github.com/aescanero/chloe/internal/application/workers"
	"github.com/aescanero/chloe/internal/application/workflow"
	"github.com/aescanero/chloe/internal/config"
	"github.com/aescanero/chloe/internal/telemetry"
	eventsmemory "github.com/aescanero/chloe/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/chloe/pkg/adapters/events/redis"
	"github.com/aescanero/chloe/pkg/adapters/fetch/apify"
	"github.com/aescanero/chloe/pkg/adapters/llm"
	chloemetrics "github.com/aescanero/chloe/pkg/adapters/metrics/prometheus"
	storagememory "github.com/aescanero/chloe/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/chloe/pkg/adapters/storage/redis"
	"github.com/aescanero/chloe/pkg/adapters/storage/sqlite"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the wired components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	pool     *workers.Pool
	eventBus ports.EventBus
	manager  *orchestrator.Manager

	// closers run in reverse order on shutdown
	closers []func(context.Context) error
}

// newApp wires configuration into a ready manager. The worker pool is started.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := chloemetrics.NewCollector(a.registry)

	tracer, shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Exporter:       cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	generator, err := llm.NewGenerator(&llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.RequestTimeout,
		Logger:   logger,
	})
	if err != nil {
		return nil, a.fail(ctx, fmt.Errorf("failed to create LLM client: %w", err))
	}

	fetcher, err := apify.NewClient(apify.Config{
		Token:             cfg.Apify.Token,
		BaseURL:           cfg.Apify.BaseURL,
		ProfileActor:      cfg.Apify.ProfileActor,
		PostsActor:        cfg.Apify.PostsActor,
		ReactionsActor:    cfg.Apify.ReactionsActor,
		RequestsPerSecond: cfg.Apify.RequestsPerSecond,
		Burst:             cfg.Apify.Burst,
		Timeout:           cfg.Apify.Timeout,
	}, logger.Named("apify"))
	if err != nil {
		return nil, a.fail(ctx, fmt.Errorf("failed to create Apify client: %w", err))
	}

	lim := limiter.New(cfg.LLM.MaxConcurrentRequests, limiter.WithMetrics(metrics))
	retrier := structured.NewRetrier(generator, lim, logger.Named("structured"),
		structured.WithMaxRetries(cfg.LLM.MaxRetries),
		structured.WithGenerationDefaults(cfg.LLM.DefaultTemperature, cfg.LLM.DefaultMaxTokens),
		structured.WithMetrics(metrics),
	)

	leadAgent, err := agent.New(fetcher, retrier, agent.Settings{
		DefaultOutreachLanguage: cfg.Agent.DefaultOutreachLanguage,
		CompanyName:             cfg.Agent.CompanyName,
		CompanyContext:          cfg.Agent.CompanyContext,
		Prompts: agent.PromptTemplates{
			Profile:      cfg.Agent.Prompts.Profile,
			Interactions: cfg.Agent.Prompts.Interactions,
			Outreach:     cfg.Agent.Prompts.Outreach,
		},
		Models: cfg.Models(),
	}, logger.Named("agent"), agent.WithMetrics(metrics))
	if err != nil {
		return nil, a.fail(ctx, fmt.Errorf("failed to create agent: %w", err))
	}

	graph, err := leadAgent.Graph()
	if err != nil {
		return nil, a.fail(ctx, fmt.Errorf("failed to build workflow graph: %w", err))
	}
	executor := workflow.NewExecutor(graph, logger.Named("workflow"),
		workflow.WithNodeTimeout(cfg.Timeouts.NodeTimeout),
		workflow.WithTracer(tracer),
	)

	store, bus, err := a.backends(ctx)
	if err != nil {
		return nil, a.fail(ctx, err)
	}
	a.eventBus = bus

	a.pool = workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		metrics,
		logger.Named("workers"),
		cfg.Workers.HealthCheckInterval,
	)
	if err := a.pool.Start(); err != nil {
		return nil, a.fail(ctx, fmt.Errorf("failed to start worker pool: %w", err))
	}
	a.closers = append(a.closers, a.pool.Shutdown)

	a.manager = orchestrator.NewManager(
		executor,
		a.pool,
		store,
		bus,
		metrics,
		orchestrator.NewValidator(),
		logger.Named("orchestrator"),
		cfg.Timeouts.RunTimeout,
	)
	// Runs stop before the pool drains
	a.closers = append(a.closers, a.manager.Shutdown)

	logger.Info("application wired",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("llm_max_concurrent_requests", cfg.LLM.MaxConcurrentRequests),
		zap.Int("llm_max_retries", cfg.LLM.MaxRetries),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("event_bus", cfg.Storage.EventBus),
		zap.Strings("phases", phaseNames(graph)))

	return a, nil
}

// backends builds the run store and event bus selected by configuration
func (a *app) backends(ctx context.Context) (ports.RunStore, ports.EventBus, error) {
	cfg := a.cfg
	var redisClient *goredis.Client
	if cfg.Storage.Backend == "redis" || cfg.Storage.EventBus == "redis" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
	}

	var store ports.RunStore
	switch cfg.Storage.Backend {
	case "redis":
		store = storageredis.NewRunStore(redisClient, cfg.Storage.RunTTL, a.logger.Named("storage"))
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, a.logger.Named("storage"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		store = s
	default:
		store = storagememory.NewRunStore()
	}

	var bus ports.EventBus
	switch cfg.Storage.EventBus {
	case "redis":
		bus = eventsredis.NewStreamsEventBus(redisClient, a.logger.Named("events"))
	default:
		bus = eventsmemory.NewEventBus(a.logger.Named("events"))
	}
	a.closers = append(a.closers, func(context.Context) error { return bus.Close() })

	return store, bus, nil
}

// close releases components in reverse order of construction
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) fail(ctx context.Context, err error) error {
	if cerr := a.close(ctx); cerr != nil {
		a.logger.Error("cleanup after failed startup", zap.Error(cerr))
	}
	return err
}

func phaseNames(g *workflow.Graph) []string {
	var names []string
	for _, phase := range g.Phases() {
		names = append(names, fmt.Sprint(phase))
	}
	return names
}
