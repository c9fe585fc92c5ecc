package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow"
	"github.com/BaSui01/supportflow/api/handlers"
	"github.com/BaSui01/supportflow/config"
	"github.com/BaSui01/supportflow/internal/cache"
	"github.com/BaSui01/supportflow/internal/database"
	"github.com/BaSui01/supportflow/internal/metrics"
	"github.com/BaSui01/supportflow/internal/runstore"
	"github.com/BaSui01/supportflow/internal/telemetry"
	"github.com/BaSui01/supportflow/llm"
	"github.com/BaSui01/supportflow/llm/embedding"
	"github.com/BaSui01/supportflow/llm/providers/openaicompat"
	"github.com/BaSui01/supportflow/rag"
	"github.com/BaSui01/supportflow/workflow"
)

// =============================================================================
// 🧩 应用装配
// =============================================================================

// App 持有一次进程生命周期内的全部组件
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	telemetry *telemetry.Providers

	service *supportflow.Service
	runs    *runstore.Store // 未启用持久化时为 nil

	checks  []handlers.HealthCheck
	closers []func(context.Context) error
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp 按配置装配检索、LLM、工作流引擎、缓存与运行记录存储。
// 检索后端或数据库不可用时返回错误；Redis 不可用时降级为无缓存。
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) (_ *App, err error) {
	app := &App{cfg: cfg, logger: logger, collector: collector}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry disabled", zap.Error(err))
	} else {
		app.telemetry = providers
		app.closers = append(app.closers, providers.Shutdown)
	}

	var pool *database.PoolManager
	if cfg.Database.Enabled || cfg.Retrieval.Backend == "pgvector" {
		pool, err = database.Open(cfg.Database, logger, database.WithStatsRecorder(cfg.Database.Driver, collector))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return pool.Close() })
		app.checks = append(app.checks, handlers.NewPingCheck("database", pool.Ping))
	}

	embedder := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	})

	store, err := buildVectorStore(ctx, cfg, pool, embedder, logger)
	if err != nil {
		return nil, err
	}
	app.checks = append(app.checks, handlers.NewPingCheck("retriever", func(ctx context.Context) error {
		_, err := store.Count(ctx)
		return err
	}))
	retriever := rag.NewVectorRetriever(embedder, store, logger)

	provider := llm.NewResilientProvider(
		openaicompat.New(openaicompat.Config{
			ProviderName: cfg.LLM.Provider,
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
			Timeout:      cfg.LLM.Timeout,
		}, logger),
		resilienceConfig(cfg.LLM),
		collector,
		logger,
	)

	observers := []workflow.Observer{collector}
	if cfg.Database.Enabled {
		app.runs = runstore.NewStore(pool, collector, logger)
		if err := app.runs.Migrate(ctx); err != nil {
			return nil, err
		}
		observers = append(observers, app.runs)
	}

	engine, err := supportflow.NewLLMEngine(provider, retriever, cfg.Workflow, cfg.LLM.Model, logger,
		workflow.WithTracer(app.telemetry.Tracer()),
		workflow.WithObserver(observers...),
	)
	if err != nil {
		return nil, err
	}

	serviceOpts := []supportflow.ServiceOption{supportflow.WithLogger(logger)}
	if cfg.Cache.Enabled {
		manager, cacheErr := cache.NewManager(cache.ConfigFrom(cfg.Redis, cfg.Cache), logger)
		if cacheErr != nil {
			logger.Warn("answer cache disabled, redis unavailable", zap.Error(cacheErr))
		} else {
			app.closers = append(app.closers, func(context.Context) error { return manager.Close() })
			app.checks = append(app.checks, handlers.NewPingCheck("redis", manager.Ping))
			serviceOpts = append(serviceOpts, supportflow.WithCache(
				cache.NewAnswerCache(manager, cfg.Cache.KeyPrefix, cfg.Cache.TTL, collector, logger),
			))
		}
	}
	app.service = supportflow.NewService(engine, serviceOpts...)

	logger.Info("application assembled",
		zap.String("retrieval_backend", cfg.Retrieval.Backend),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("run_store_enabled", app.runs != nil),
	)
	return app, nil
}

func buildVectorStore(ctx context.Context, cfg *config.Config, pool *database.PoolManager, embedder embedding.Provider, logger *zap.Logger) (rag.VectorStore, error) {
	switch cfg.Retrieval.Backend {
	case "memory":
		store := rag.NewInMemoryVectorStore(logger)
		if cfg.Retrieval.SeedPath != "" {
			n, err := store.LoadSeedFile(ctx, cfg.Retrieval.SeedPath, embedder)
			if err != nil {
				return nil, fmt.Errorf("load seed documents: %w", err)
			}
			logger.Info("seed documents loaded", zap.Int("count", n), zap.String("path", cfg.Retrieval.SeedPath))
		}
		return store, nil

	case "qdrant":
		return rag.NewQdrantStore(rag.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    cfg.Qdrant.Timeout,
		}, logger), nil

	case "pgvector":
		if pool == nil {
			return nil, errors.New("pgvector backend requires a database connection")
		}
		store, err := rag.NewPGVectorStore(pool.DB(), cfg.Retrieval.PGVectorTable, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Embedding.Dimensions > 0 {
			if err := store.EnsureSchema(ctx, cfg.Embedding.Dimensions); err != nil {
				return nil, err
			}
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown retrieval backend %q", cfg.Retrieval.Backend)
	}
}

// resilienceConfig 将 LLM 配置映射为重试与熔断策略
func resilienceConfig(cfg config.LLMConfig) *llm.ResilientProviderConfig {
	rc := llm.DefaultResilientProviderConfig()
	rc.RetryPolicy.MaxRetries = cfg.MaxRetries
	if cfg.BreakerThreshold > 0 {
		rc.CircuitBreakerConfig.Threshold = cfg.BreakerThreshold
	}
	if cfg.BreakerResetTimeout > 0 {
		rc.CircuitBreakerConfig.ResetTimeout = cfg.BreakerResetTimeout
	}
	if cfg.Timeout > 0 {
		rc.CircuitBreakerConfig.Timeout = cfg.Timeout
	}
	return rc
}

// Close 逆序释放组件
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
