package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ProfilePlus/ecommerce-microservices/internal/app"
	"github.com/ProfilePlus/ecommerce-microservices/internal/config"
	"github.com/ProfilePlus/ecommerce-microservices/internal/handlers"
	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.NewInfrastructure(ctx, config.ServiceOrder)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}

	if err := run(ctx, infra); err != nil {
		infra.Logger.Error("Order service stopped with error", zap.Error(err))
		infra.Shutdown(context.Background())
		os.Exit(1)
	}
	infra.Shutdown(context.Background())
}

func run(ctx context.Context, infra *app.Infrastructure) error {
	database, err := infra.OpenDB(ctx)
	if err != nil {
		return err
	}

	redisCache, err := infra.OpenCache(ctx)
	if err != nil {
		return err
	}

	bus, err := infra.OpenBus(ctx, messaging.TopicOrderCreated)
	if err != nil {
		return err
	}

	router := app.NewRouter(infra, map[string]handlers.Check{
		"database": database.Conn.PingContext,
		"redis":    redisCache.Ping,
	})
	app.OrderModule(infra, database, redisCache, bus)(router)

	return infra.Run(ctx, router, bus)
}
