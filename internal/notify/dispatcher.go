package notify

import (
	"context"
	"errors"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errPanicked = errors.New("notification channel panicked")

type Result struct {
	Channel string
	Err     error
}

// Dispatcher fans one event out to every channel concurrently. A failing
// channel is logged and never affects the others.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewDispatcher(channels []Channel, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		logger:   logger,
		tracer:   otel.Tracer("notification-service"),
	}
}

// Dispatch returns one Result per channel, in channel order.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.InventoryResultEvent) []Result {
	ctx, span := d.tracer.Start(ctx, "notification.dispatch", trace.WithAttributes(
		attribute.String("order.no", event.OrderNo),
		attribute.String("event.type", string(event.Type)),
	))
	defer span.End()

	results := make([]Result, len(d.channels))

	var g errgroup.Group
	for i, ch := range d.channels {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = Result{Channel: ch.Name(), Err: d.send(ctx, ch, event)}
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("channels.failed", failed))
	return results
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, event models.InventoryResultEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("❌ Notification channel panicked", zap.String("channel", ch.Name()), zap.Any("panic", r))
			err = errPanicked
		}
	}()

	if err := ch.Send(ctx, event); err != nil {
		d.logger.Error("❌ Notification failed",
			zap.String("channel", ch.Name()),
			zap.String("order_no", event.OrderNo),
			zap.Error(err),
		)
		return err
	}
	return nil
}
