package messaging

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var ErrBusClosed = errors.New("message bus closed")

// Message is a single record on a topic. Key selects the partition, so
// messages with equal keys are delivered in publish order.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Handler processes one message. A returned error is logged by the bus and
// the message is still acknowledged: there is no redelivery and no dead
// letter queue.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// Subscriber registers a handler as one member of a consumer group. Every
// group subscribed to a topic receives each message once, delivered to a
// single member of that group.
type Subscriber interface {
	Subscribe(topic, group string, h Handler) error
}

type Bus interface {
	Publisher
	Subscriber
	// Run consumes until ctx is done.
	Run(ctx context.Context) error
	Close() error
}

type subscription struct {
	topic   string
	group   string
	handler Handler
}

func injectTrace(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}

func extractTrace(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
}

// deliver runs h and swallows its failure after logging it.
func deliver(ctx context.Context, logger *zap.Logger, group string, msg Message, h Handler) {
	ctx = extractTrace(ctx, msg.Headers)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("❌ Handler panicked, message dropped",
				zap.String("topic", msg.Topic),
				zap.String("group", group),
				zap.String("key", msg.Key),
				zap.Any("panic", r),
			)
		}
	}()

	if err := h(ctx, msg); err != nil {
		logger.Error("❌ Handler failed, message dropped",
			zap.String("topic", msg.Topic),
			zap.String("group", group),
			zap.String("key", msg.Key),
			zap.Error(err),
		)
	}
}
