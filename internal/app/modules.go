package app

import (
	"github.com/ProfilePlus/ecommerce-microservices/internal/consumer"
	"github.com/ProfilePlus/ecommerce-microservices/internal/db"
	"github.com/ProfilePlus/ecommerce-microservices/internal/handlers"
	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"github.com/ProfilePlus/ecommerce-microservices/internal/notify"
	"github.com/ProfilePlus/ecommerce-microservices/internal/publisher"
	"github.com/ProfilePlus/ecommerce-microservices/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderModule wires Order Intake and returns its HTTP routes.
func OrderModule(infra *Infrastructure, database *db.DB, c service.Cache, bus messaging.Publisher) func(gin.IRouter) {
	orders := service.NewOrderService(
		db.NewOrderRepository(database),
		c,
		publisher.NewOrderPublisher(bus, infra.Logger),
		infra.Config.OrderCacheTTL,
		infra.Logger,
	)
	return handlers.NewOrderHandler(orders, infra.Logger).Routes
}

// InventoryModule wires the Inventory Ledger, subscribes it to
// order-created and returns its HTTP routes.
func InventoryModule(infra *Infrastructure, database *db.DB, c service.Cache, bus messaging.Bus) (func(gin.IRouter), error) {
	cfg := infra.Config
	inventory := service.NewInventoryService(
		db.NewInventoryRepository(database),
		c,
		service.CASPolicy{
			MaxAttempts:    cfg.CASMaxAttempts,
			InitialBackoff: cfg.CASInitialBackoff,
			MaxBackoff:     cfg.CASMaxBackoff,
		},
		infra.Logger,
	)

	inventoryConsumer := consumer.NewInventoryConsumer(
		inventory,
		publisher.NewInventoryResultPublisher(bus, infra.Logger),
		infra.Logger,
	)
	if err := inventoryConsumer.Register(bus); err != nil {
		return nil, err
	}

	return handlers.NewInventoryHandler(inventory, infra.Logger).Routes, nil
}

// NotificationModule subscribes the dispatcher to inventory results.
func NotificationModule(infra *Infrastructure, bus messaging.Subscriber) error {
	channels, err := notify.ChannelsByName(infra.Config.NotifyChannels, infra.Logger)
	if err != nil {
		return err
	}

	infra.Logger.Info("📣 Notification channels", zap.Strings("channels", infra.Config.NotifyChannels))
	return consumer.NewNotificationConsumer(notify.NewDispatcher(channels, infra.Logger), infra.Logger).Register(bus)
}
