package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/health"
	pkgkafka "github.com/SrinivasareddyGatla/open-commerce-search/pkg/kafka"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/middleware"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/tracing"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/datasource"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/event"
	handler "github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/handler/http"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/scheduler"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/service"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/suggest/internal/suggester"
)

// App wires together all dependencies and runs the suggest service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	suggesters     *suggester.Manager
	service        *service.SuggestService
	scheduler      *scheduler.Scheduler
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
	tracingCfg.ServiceName = "suggest"
	tracerShutdown, err := tracing.Setup(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	// Suggest data source.
	var source datasource.Source
	switch cfg.DataSource {
	case config.SourceFile:
		source = datasource.NewFileSource(cfg.DataFile, logger)
		logger.Info("suggest data file configured", slog.String("path", cfg.DataFile))
	default:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", rdb.Options().Addr),
			slog.Int("db", rdb.Options().DB),
		)
		if err := database.RegisterRedisPoolMetrics(prometheus.DefaultRegisterer, rdb, "suggest"); err != nil {
			_ = rdb.Close()
			return nil, err
		}
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		a.rdb = rdb
		source = datasource.NewRedisSource(rdb, logger)
	}

	// Suggesters.
	locale := cfg.LocaleTag()
	a.suggesters = suggester.NewManager(func(ctx context.Context, name string) (*suggester.QuerySuggester, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.BuildTimeout)
		defer cancel()
		records, err := source.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load suggest data for %s: %w", name, err)
		}
		logger.Debug("suggest data loaded", slog.String("index", name), slog.Int("records", len(records)))
		return suggester.New(name, suggester.NewMemoryIndex(records, locale), locale, logger), nil
	}, logger)
	a.service = service.NewSuggestService(a.suggesters, cfg.MaxIdle, logger)

	a.scheduler, err = scheduler.New(cfg.RefreshCron, a.service, cfg.BuildTimeout, logger)
	if err != nil {
		a.closeRedis()
		return nil, err
	}

	// Kafka: drop suggesters whose index was rebuilt.
	if cfg.KafkaEnabled {
		var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(time.Hour)
		if a.rdb != nil {
			store = pkgkafka.NewRedisIdempotencyStore(a.rdb, "suggest", 24*time.Hour)
		}
		a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		handle := pkgkafka.IdempotentHandler(store, event.NewConsumer(a.service, logger).Handle, logger)
		a.consumers = append(a.consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    pkgkafka.TopicIndexUpdated,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, handle, logger, pkgkafka.WithDLQ(a.dlq)))

		brokers := cfg.KafkaBrokers
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, brokers)
		})
		logger.Info("kafka consumer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(
		handler.NewSuggestHandler(a.service, logger),
		healthHandler,
		handler.RouterConfig{
			PprofCIDRs: cfg.PprofAllowedCIDRs,
			CORS:       corsCfg,
			RateLimit: middleware.RateLimitConfig{
				Service:           "suggest",
				RequestsPerSecond: cfg.RateLimit,
				Burst:             cfg.RateBurst,
			},
		},
		logger,
	)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the HTTP server, the refresh schedule and the Kafka consumers,
// blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	a.service.Start()
	a.scheduler.Start()

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
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
// 3. Refresh schedule and Kafka consumers
// 4. Suggesters and Redis client
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

	// 3. Background work.
	schedCtx, schedCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer schedCancel()
	if err := a.scheduler.Stop(schedCtx); err != nil {
		a.logger.Error("refresh scheduler stop error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
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

	// 4. Suggesters and Redis.
	a.service.Stop()
	a.suggesters.Close()
	a.closeRedis()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeRedis() {
	if a.rdb == nil {
		return
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
}
