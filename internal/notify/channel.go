package notify

import (
	"context"
	"fmt"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"go.uber.org/zap"
)

// Channel delivers one inventory result to a user-facing medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, event models.InventoryResultEvent) error
}

// SMSChannel is a stub that logs the text it would send.
type SMSChannel struct {
	logger *zap.Logger
}

func NewSMSChannel(logger *zap.Logger) *SMSChannel {
	return &SMSChannel{logger: logger}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Send(ctx context.Context, event models.InventoryResultEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Info("📱 SMS sent",
		zap.String("order_no", event.OrderNo),
		zap.String("text", fmt.Sprintf("Order %s: %s", event.OrderNo, event.Message)),
	)
	return nil
}

// EmailChannel is a stub that logs the mail it would send.
type EmailChannel struct {
	logger *zap.Logger
}

func NewEmailChannel(logger *zap.Logger) *EmailChannel {
	return &EmailChannel{logger: logger}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, event models.InventoryResultEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.Info("📧 Email sent",
		zap.String("order_no", event.OrderNo),
		zap.String("subject", fmt.Sprintf("Order %s update", event.OrderNo)),
		zap.String("body", event.Message),
		zap.String("type", string(event.Type)),
	)
	return nil
}

// ChannelsByName builds the configured channels in order.
func ChannelsByName(names []string, logger *zap.Logger) ([]Channel, error) {
	channels := make([]Channel, 0, len(names))
	for _, name := range names {
		switch name {
		case "sms":
			channels = append(channels, NewSMSChannel(logger))
		case "email":
			channels = append(channels, NewEmailChannel(logger))
		default:
			return nil, fmt.Errorf("unknown notification channel %q", name)
		}
	}
	return channels, nil
}
