package consumer

import (
	"context"
	"fmt"

	"github.com/ProfilePlus/ecommerce-microservices/internal/messaging"
	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"go.uber.org/zap"
)

type InventoryDeducter interface {
	DeductInventory(ctx context.Context, productID int64, quantity int) (bool, error)
}

type InventoryResultPublisher interface {
	PublishInventoryResult(ctx context.Context, event models.InventoryResultEvent) error
}

// InventoryConsumer applies order-created events to the inventory ledger.
// There is no dedupe: a redelivered event decrements again.
type InventoryConsumer struct {
	inventory InventoryDeducter
	results   InventoryResultPublisher
	logger    *zap.Logger
}

func NewInventoryConsumer(inventory InventoryDeducter, results InventoryResultPublisher, logger *zap.Logger) *InventoryConsumer {
	return &InventoryConsumer{inventory: inventory, results: results, logger: logger}
}

// Register subscribes the consumer to order-created as a member of the
// inventory group.
func (c *InventoryConsumer) Register(sub messaging.Subscriber) error {
	return sub.Subscribe(
		messaging.TopicOrderCreated,
		messaging.GroupInventory,
		messaging.Typed[models.OrderCreatedEvent](messaging.JSONCodec[models.OrderCreatedEvent]{}, c.HandleOrderCreated),
	)
}

// HandleOrderCreated deducts the ordered quantity and publishes
// INVENTORY_DEDUCTED on success. Insufficient stock is only logged.
func (c *InventoryConsumer) HandleOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error {
	if err := validateOrderCreated(event); err != nil {
		c.logger.Error("❌ Dropping malformed order-created event", zap.Error(err))
		return err
	}

	c.logger.Info("📥 Received order-created event",
		zap.String("order_no", event.OrderNo),
		zap.Int64("product_id", event.ProductID),
		zap.Int("quantity", event.Quantity),
	)

	ok, err := c.inventory.DeductInventory(ctx, event.ProductID, event.Quantity)
	if err != nil {
		return fmt.Errorf("deduct inventory for order %s: %w", event.OrderNo, err)
	}

	if !ok {
		c.logger.Warn("⚠️ Insufficient stock",
			zap.String("order_no", event.OrderNo),
			zap.Int64("product_id", event.ProductID),
			zap.Int("quantity", event.Quantity),
		)
		return nil
	}

	result := models.InventoryResultEvent{
		OrderNo:   event.OrderNo,
		ProductID: event.ProductID,
		Type:      models.InventoryDeducted,
		Message:   fmt.Sprintf("Inventory deducted for order %s", event.OrderNo),
	}
	if err := c.results.PublishInventoryResult(ctx, result); err != nil {
		return fmt.Errorf("publish inventory result for order %s: %w", event.OrderNo, err)
	}

	c.logger.Info("✅ Order processed successfully", zap.String("order_no", event.OrderNo))
	return nil
}

func validateOrderCreated(event models.OrderCreatedEvent) error {
	switch {
	case event.OrderNo == "":
		return fmt.Errorf("%w: missing orderNo", models.ErrMalformedMessage)
	case event.ProductID == 0:
		return fmt.Errorf("%w: missing productId for order %s", models.ErrMalformedMessage, event.OrderNo)
	case event.Quantity <= 0:
		return fmt.Errorf("%w: quantity %d for order %s", models.ErrMalformedMessage, event.Quantity, event.OrderNo)
	}
	return nil
}
