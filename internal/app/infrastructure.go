package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ProfilePlus/ecommerce-microservices/internal/cache"
	"github.com/ProfilePlus/ecommerce-microservices/internal/config"
	"github.com/ProfilePlus/ecommerce-microservices/internal/db"
	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"github.com/ProfilePlus/ecommerce-microservices/internal/observability"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Infrastructure holds the process-wide resources of one service and
// releases them in reverse order of acquisition.
type Infrastructure struct {
	Config         *config.Config
	Logger         *zap.Logger
	TracerProvider *sdktrace.TracerProvider

	closers []func(context.Context) error
}

func NewInfrastructure(ctx context.Context, service string) (*Infrastructure, error) {
	cfg, err := config.Load(service)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewInfrastructureWithConfig(ctx, cfg)
}

func NewInfrastructureWithConfig(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	infra := &Infrastructure{Config: cfg}

	otelLogShutdown, logErr := observability.SetupLoggingSDK(ctx, cfg)
	infra.addCloser(otelLogShutdown)

	tp, otelTraceShutdown, traceErr := observability.SetupTracingSDK(ctx, cfg)
	infra.addCloser(otelTraceShutdown)
	infra.TracerProvider = tp

	infra.Logger = observability.NewLogger(cfg)
	if logErr != nil {
		infra.Logger.Error("Failed to setup OpenTelemetry logging", zap.Error(logErr))
	}
	if traceErr != nil {
		infra.Logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(traceErr))
	}

	return infra, nil
}

func (infra *Infrastructure) addCloser(fn func(context.Context) error) {
	if fn != nil {
		infra.closers = append(infra.closers, fn)
	}
}

// OpenDB connects to the relational store and applies the schema.
func (infra *Infrastructure) OpenDB(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(ctx, infra.Config.DBDriver, infra.Config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	infra.addCloser(func(context.Context) error { return database.Close() })

	if err := db.Migrate(ctx, database); err != nil {
		return nil, err
	}

	infra.Logger.Info("✅ Connected to database", zap.String("driver", database.Dialect.Name))
	return database, nil
}

func (infra *Infrastructure) OpenCache(ctx context.Context) (*cache.RedisCache, error) {
	c, err := cache.NewRedisCache(ctx, infra.Config.RedisAddr, infra.Config.RedisPassword, infra.Config.RedisDB, infra.Logger)
	if err != nil {
		return nil, err
	}
	infra.addCloser(func(context.Context) error { return c.Close() })
	return c, nil
}

// OpenBus builds the bus for the given topics. With BUS=memory every topic
// stays in process. Otherwise order-created goes over Kafka and the
// notification topic over RabbitMQ, and only the brokers the topics need
// are connected.
func (infra *Infrastructure) OpenBus(ctx context.Context, topics ...string) (messaging.Bus, error) {
	cfg := infra.Config

	var bus messaging.Bus
	if cfg.Bus == config.BusMemory {
		bus = messaging.NewMemoryBus(infra.Logger, cfg.ConsumerWorkers)
	} else {
		var kafkaBus, rabbitBus messaging.Bus

		needsRabbit := slices.Contains(topics, messaging.TopicInventoryResult)
		needsKafka := slices.ContainsFunc(topics, func(t string) bool { return t != messaging.TopicInventoryResult })

		if needsKafka {
			kb, err := messaging.NewKafkaBus(cfg.KafkaBrokers, cfg.ServiceName, cfg.ConsumerWorkers, otel.GetTracerProvider(), infra.Logger)
			if err != nil {
				return nil, err
			}
			kafkaBus = kb
		}
		if needsRabbit {
			rb, err := messaging.NewRabbitMQ(cfg.RabbitMQURL, messaging.ExchangeOrder, infra.Logger)
			if err != nil {
				if kafkaBus != nil {
					kafkaBus.Close()
				}
				return nil, err
			}
			rabbitBus = rb
		}

		switch {
		case kafkaBus != nil && rabbitBus != nil:
			bus = messaging.NewRouter(kafkaBus).Route(messaging.TopicInventoryResult, rabbitBus)
		case rabbitBus != nil:
			bus = rabbitBus
		case kafkaBus != nil:
			bus = kafkaBus
		default:
			return nil, errors.New("no topics requested")
		}
	}

	infra.addCloser(func(context.Context) error { return bus.Close() })
	return bus, nil
}

// Shutdown releases every resource and flushes the logger.
func (infra *Infrastructure) Shutdown(ctx context.Context) {
	infra.Logger.Info("Shutting down infrastructure...")

	for i := len(infra.closers) - 1; i >= 0; i-- {
		if err := infra.closers[i](ctx); err != nil {
			infra.Logger.Error("Failed to release resource", zap.Error(err))
		}
	}
	infra.closers = nil

	if err := infra.Logger.Sync(); err != nil {
		// Can't log this error since logger might be closed
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}
