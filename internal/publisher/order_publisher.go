package publisher

import (
	"context"

	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"go.uber.org/zap"
)

type OrderPublisher struct {
	bus    messaging.Publisher
	logger *zap.Logger
}

func NewOrderPublisher(bus messaging.Publisher, logger *zap.Logger) *OrderPublisher {
	return &OrderPublisher{bus: bus, logger: logger}
}

// PublishOrderCreated publishes an order-created event keyed by orderNo.
func (p *OrderPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	event := models.NewOrderCreatedEvent(order)

	if err := messaging.PublishJSON(ctx, p.bus, messaging.TopicOrderCreated, order.OrderNo, event); err != nil {
		return err
	}

	p.logger.Info("📤 Published order-created event", zap.String("order_no", order.OrderNo))
	return nil
}
