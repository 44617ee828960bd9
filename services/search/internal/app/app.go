package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/health"
	pkgkafka "github.com/SrinivasareddyGatla/open-commerce-search/pkg/kafka"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/middleware"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/configstore"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine"
	esengine "github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine/elasticsearch"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/engine/memory"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/event"
	handler "github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/handler/http"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/indexer"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/searcher"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/tenant"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/migrations"
)

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	fileStore      *configstore.FileStore
	searchers      *searcher.Cache
	reconfigure    *event.Consumer
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracingCfg := cfg.Tracing
	tracingCfg.ServiceName = "search"
	tracerShutdown, err := tracing.Setup(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	// Index engine.
	var eng engine.Engine
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		esEng, err := esengine.New(esengine.Config{
			URL:      cfg.ElasticsearchURL,
			Username: cfg.ElasticsearchUsername,
			Password: cfg.ElasticsearchPassword,
			Timeout:  cfg.ElasticsearchTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		eng = esEng
		healthHandler.RegisterCritical("elasticsearch", esEng.Ping)
		healthHandler.RegisterNonCritical("elasticsearch_breaker", esEng.BreakerCheck)
		logger.Info("elasticsearch engine initialized", slog.String("url", cfg.ElasticsearchURL))
	default:
		eng = memory.New()
		logger.Info("in-memory engine initialized")
	}

	// Settings store.
	var store event.SettingsLoader
	switch cfg.ConfigStore {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.Postgres.Host),
			slog.Int("port", cfg.Postgres.Port),
			slog.String("database", cfg.Postgres.DBName),
		)
		database.RegisterPoolMetrics(pool, "search")

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}
		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		a.pool = pool
		store = configstore.NewPostgresStore(pool)
	default:
		fs := configstore.NewFileStore(cfg.ConfigFile, logger)
		if cfg.ConfigWatch {
			a.fileStore = fs
		}
		store = fs
	}

	settings, err := store.Load(ctx)
	if err != nil {
		a.closePool()
		return nil, fmt.Errorf("load search settings: %w", err)
	}
	logger.Info("search settings loaded",
		slog.String("store", cfg.ConfigStore),
		slog.Int("tenants", len(settings.Tenants)),
		slog.Int("indexes", len(settings.Indexes)),
	)

	// Resolver, searcher cache and indexer.
	resolver := tenant.NewResolver(settings, cfg.AllowUnknownTenants, logger)
	a.searchers = searcher.NewCache(cfg.SearcherCacheSize, cfg.SearcherCacheTTL,
		func(_ context.Context, name string) (*searcher.Searcher, error) {
			sc, err := resolver.Resolve(name)
			if err != nil {
				return nil, err
			}
			return searcher.New(sc, eng, logger), nil
		}, logger)
	a.reconfigure = event.NewConsumer(store, resolver, a.searchers, logger)

	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		publisher = a.producer

		handle := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Hour), a.reconfigure.Handle, logger)
		a.consumers = append(a.consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    pkgkafka.TopicConfigChanged,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, handle, logger, pkgkafka.WithDLQ(a.dlq)))

		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	x := indexer.New(eng, resolver, publisher, logger)

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(
		handler.NewSearchHandler(a.searchers, resolver, logger),
		handler.NewIndexerHandler(x, logger),
		healthHandler,
		handler.RouterConfig{
			IndexerToken:     cfg.IndexerAPIToken,
			IndexerJWTSecret: cfg.IndexerJWTSecret,
			PprofCIDRs:       cfg.PprofAllowedCIDRs,
			CORS:             corsCfg,
			SearchMaxAge:     cfg.SearchCacheMaxAge,
		},
		logger,
	)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the HTTP server, the settings watcher and the Kafka consumers,
// blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2+len(a.consumers))

	a.searchers.Start()

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	if a.fileStore != nil {
		go func() {
			err := a.fileStore.Watch(ctx, func(s *domain.Settings) {
				a.reconfigure.Apply(s, "")
			})
			if err != nil {
				errCh <- fmt.Errorf("settings watcher: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumers and producers
// 4. Searcher cache and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Kafka.
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Caches and pool.
	a.searchers.Stop()
	a.closePool()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closePool() {
	if a.pool != nil {
		a.pool.Close()
	}
}
