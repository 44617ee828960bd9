package database

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"

var slowQueryCfg struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowQueryLogging configures slow operation detection for SQL queries and
// Redis commands. Operations exceeding the threshold are logged as warnings.
// A zero threshold disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQueryCfg.mu.Lock()
	defer slowQueryCfg.mu.Unlock()
	slowQueryCfg.threshold = threshold
	slowQueryCfg.logger = logger
}

func getSlowQueryConfig() (time.Duration, *slog.Logger) {
	slowQueryCfg.mu.RLock()
	defer slowQueryCfg.mu.RUnlock()
	return slowQueryCfg.threshold, slowQueryCfg.logger
}

// startSpan opens a client span for one storage operation. The returned
// function ends it, recording err and logging the operation if it was slow.
func startSpan(ctx context.Context, system, operation, statement string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, system+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("db.system", system),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		}, attrs...)...),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		threshold, logger := getSlowQueryConfig()
		if threshold <= 0 || logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= threshold {
			fields := []any{
				slog.String("system", system),
				slog.String("operation", operation),
				slog.String("statement", statement),
				slog.Duration("duration", elapsed),
			}
			if err != nil {
				fields = append(fields, slog.String("error", err.Error()))
			}
			logger.WarnContext(ctx, "slow query detected", fields...)
		}
	}
}

// TraceQuery starts a span for a Postgres operation. The returned function
// must be called when the operation completes:
//
//	ctx, end := database.TraceQuery(ctx, "LoadSearchSettings", "SELECT scope, name, config FROM search_settings")
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	return startSpan(ctx, "postgresql", operation, statement)
}

// RedisTracingHook traces every Redis command and pipeline. redis.Nil is a
// normal miss and is not recorded as an error.
type RedisTracingHook struct{}

var _ redis.Hook = RedisTracingHook{}

// DialHook implements redis.Hook.
func (RedisTracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook implements redis.Hook.
func (RedisTracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, end := startSpan(ctx, "redis", cmd.Name(), commandStatement(cmd))
		err := next(ctx, cmd)
		end(redisError(err))
		return err
	}
}

// ProcessPipelineHook implements redis.Hook.
func (RedisTracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, len(cmds))
		for i, cmd := range cmds {
			names[i] = cmd.Name()
		}
		ctx, end := startSpan(ctx, "redis", "pipeline", strings.Join(names, " "),
			attribute.Int("db.redis.pipeline_length", len(cmds)),
		)
		err := next(ctx, cmds)
		end(redisError(err))
		return err
	}
}

// commandStatement renders the command with its key only; values are left out.
func commandStatement(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) > 1 {
		if key, ok := args[1].(string); ok {
			return cmd.Name() + " " + key
		}
	}
	return cmd.Name()
}

func redisError(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
