package consumer

import (
	"context"
	"fmt"

	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"github.com/ProfilePlus/ecommerce-microservices/internal/notify"
	"go.uber.org/zap"
)

type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event models.InventoryResultEvent) []notify.Result
}

type NotificationConsumer struct {
	dispatcher NotificationDispatcher
	logger     *zap.Logger
}

func NewNotificationConsumer(dispatcher NotificationDispatcher, logger *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{dispatcher: dispatcher, logger: logger}
}

func (c *NotificationConsumer) Register(sub messaging.Subscriber) error {
	return sub.Subscribe(
		messaging.TopicInventoryResult,
		messaging.GroupNotification,
		messaging.Typed[models.InventoryResultEvent](messaging.JSONCodec[models.InventoryResultEvent]{}, c.HandleInventoryResult),
	)
}

// HandleInventoryResult notifies every channel. Channel failures are logged
// by the dispatcher and do not fail the message.
func (c *NotificationConsumer) HandleInventoryResult(ctx context.Context, event models.InventoryResultEvent) error {
	if event.OrderNo == "" {
		return fmt.Errorf("%w: missing orderNo", models.ErrMalformedMessage)
	}

	c.logger.Info("📥 Received inventory result",
		zap.String("order_no", event.OrderNo),
		zap.String("type", string(event.Type)),
	)

	results := c.dispatcher.Dispatch(ctx, event)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.Info("📨 Notifications dispatched",
		zap.String("order_no", event.OrderNo),
		zap.Int("channels", len(results)),
		zap.Int("failed", failed),
	)
	return nil
}
