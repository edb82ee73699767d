package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaMinBytes     = 1
	kafkaMaxBytes     = 10e6
)

type kafkaProducer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaBus publishes through one traced writer per topic and consumes with
// kafka consumer groups. Writers use the Hash balancer so every key maps to
// a single partition. Offsets are committed after the handler returns,
// whether or not it failed.
type KafkaBus struct {
	brokers  []string
	clientID string
	workers  int
	tp       trace.TracerProvider
	logger   *zap.Logger

	mu      sync.Mutex
	writers map[string]kafkaProducer
	subs    []subscription
	readers []*kafka.Reader
	closed  bool
}

func NewKafkaBus(brokers []string, clientID string, workers int, tp trace.TracerProvider, logger *zap.Logger) (*KafkaBus, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka bus needs at least one broker")
	}
	if workers <= 0 {
		workers = 1
	}

	logger.Info("✅ Kafka bus configured", zap.Strings("brokers", brokers))

	return &KafkaBus{
		brokers:  brokers,
		clientID: clientID,
		workers:  workers,
		tp:       tp,
		logger:   logger,
		writers:  make(map[string]kafkaProducer),
	}, nil
}

func (b *KafkaBus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	w, err := b.writer(topic)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}
	if err := w.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	b.logger.Debug("📤 Message published", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (b *KafkaBus) writer(topic string) (kafkaProducer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	if w, ok := b.writers[topic]; ok {
		return w, nil
	}

	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(b.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           kafkaBatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	opts := []otelkafka.Option{
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(topic),
				attribute.String("messaging.kafka.client_id", b.clientID),
			},
		),
	}
	if b.tp != nil {
		opts = append(opts, otelkafka.WithTracerProvider(b.tp))
	}

	w, err := otelkafka.NewWriter(baseWriter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka writer: %w", err)
	}
	b.writers[topic] = w
	return w, nil
}

// Subscribe records the handler; readers are started by Run.
func (b *KafkaBus) Subscribe(topic, group string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	b.subs = append(b.subs, subscription{topic: topic, group: group, handler: h})
	return nil
}

// Run starts b.workers readers per subscription. Readers in the same group
// split the topic's partitions between them.
func (b *KafkaBus) Run(ctx context.Context) error {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, sub := range subs {
		for i := 0; i < b.workers; i++ {
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:  b.brokers,
				Topic:    sub.topic,
				GroupID:  sub.group,
				MinBytes: kafkaMinBytes,
				MaxBytes: kafkaMaxBytes,
			})
			b.mu.Lock()
			b.readers = append(b.readers, reader)
			b.mu.Unlock()

			sub := sub
			g.Go(func() error {
				return b.consume(ctx, reader, sub)
			})
		}
		b.logger.Info("👂 Listening on topic",
			zap.String("topic", sub.topic),
			zap.String("group", sub.group),
			zap.Int("workers", b.workers),
		)
	}
	return g.Wait()
}

func (b *KafkaBus) consume(ctx context.Context, reader *kafka.Reader, sub subscription) error {
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			b.logger.Error("❌ Error reading from Kafka", zap.String("topic", sub.topic), zap.Error(err))
			continue
		}

		msg := Message{
			Topic:   m.Topic,
			Key:     string(m.Key),
			Value:   m.Value,
			Headers: headersFromKafka(m.Headers),
		}
		b.logger.Debug("📥 Message received",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)

		deliver(ctx, b.logger, sub.group, msg, sub.handler)

		if err := reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error("❌ Failed to commit offset", zap.String("topic", sub.topic), zap.Error(err))
		}
	}
}

func headersFromKafka(headers []kafka.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var err error
	for topic, w := range b.writers {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close writer %s: %w", topic, cerr))
		}
	}
	for _, r := range b.readers {
		if cerr := r.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close reader %s: %w", r.Config().Topic, cerr))
		}
	}
	return err
}
