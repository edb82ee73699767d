package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ProfilePlus/ecommerce-microservices/internal/app"
	"github.com/ProfilePlus/ecommerce-microservices/internal/config"
	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.NewInfrastructure(ctx, config.ServiceNotification)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}

	if err := run(ctx, infra); err != nil {
		infra.Logger.Error("Notification service stopped with error", zap.Error(err))
		infra.Shutdown(context.Background())
		os.Exit(1)
	}
	infra.Shutdown(context.Background())
}

func run(ctx context.Context, infra *app.Infrastructure) error {
	bus, err := infra.OpenBus(ctx, messaging.TopicInventoryResult)
	if err != nil {
		return err
	}

	if err := app.NotificationModule(infra, bus); err != nil {
		return err
	}

	return infra.Run(ctx, app.NewRouter(infra, nil), bus)
}
