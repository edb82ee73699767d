package publisher

import (
	"context"

	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"go.uber.org/zap"
)

type InventoryResultPublisher struct {
	bus    messaging.Publisher
	logger *zap.Logger
}

func NewInventoryResultPublisher(bus messaging.Publisher, logger *zap.Logger) *InventoryResultPublisher {
	return &InventoryResultPublisher{bus: bus, logger: logger}
}

// PublishInventoryResult publishes to the notification topic keyed by orderNo.
func (p *InventoryResultPublisher) PublishInventoryResult(ctx context.Context, event models.InventoryResultEvent) error {
	if err := messaging.PublishJSON(ctx, p.bus, messaging.TopicInventoryResult, event.OrderNo, event); err != nil {
		return err
	}

	p.logger.Info("📤 Published inventory result",
		zap.String("order_no", event.OrderNo),
		zap.String("type", string(event.Type)),
	)
	return nil
}
