package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const keyHeader = "x-message-key"

// RabbitMQ is a Bus over a durable topic exchange. Topics are routing keys.
// Each consumer group owns one durable queue named "<group>.queue" bound to
// every topic the group subscribes to, so group members compete for
// deliveries. Deliveries are acked after the handler returns.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger

	pubMu sync.Mutex

	mu     sync.Mutex
	groups map[string]map[string][]Handler
	closed bool
}

func NewRabbitMQ(url, exchange string, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r := &RabbitMQ{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
		groups:   make(map[string]map[string][]Handler),
	}

	if err := r.declareExchange(); err != nil {
		r.Close()
		return nil, err
	}

	logger.Info("✅ Connected to RabbitMQ", zap.String("exchange", exchange))
	return r, nil
}

func (r *RabbitMQ) declareExchange() error {
	err := r.channel.ExchangeDeclare(
		r.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-delete
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

// QueueName is the durable queue backing a consumer group.
func QueueName(group string) string {
	return group + ".queue"
}

// declareQueue creates the group queue if it doesn't exist and binds it to topic.
func (r *RabbitMQ) declareQueue(ch *amqp.Channel, group, topic string) error {
	name := QueueName(group)
	_, err := ch.QueueDeclare(
		name,  // queue name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		name,       // queue name
		topic,      // routing key
		r.exchange, // exchange
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	r.logger.Info("✅ Queue declared", zap.String("queue", name), zap.String("routing_key", topic))
	return nil
}

// Publish sends a persistent message to the exchange with topic as the routing key.
func (r *RabbitMQ) Publish(ctx context.Context, topic, key string, payload []byte) error {
	headers := amqp.Table{keyHeader: key}
	for k, v := range injectTrace(ctx) {
		headers[k] = v
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	err := r.channel.PublishWithContext(ctx,
		r.exchange, // exchange
		topic,      // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	r.logger.Debug("📤 Message published", zap.String("routing_key", topic), zap.String("key", key))
	return nil
}

func (r *RabbitMQ) Subscribe(topic, group string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrBusClosed
	}
	byTopic, ok := r.groups[group]
	if !ok {
		byTopic = make(map[string][]Handler)
		r.groups[group] = byTopic
	}
	byTopic[topic] = append(byTopic[topic], h)
	return nil
}

// Run opens one channel and one consumer per group member and blocks until
// ctx is done.
func (r *RabbitMQ) Run(ctx context.Context) error {
	r.mu.Lock()
	type member struct {
		group    string
		handlers map[string]Handler
	}
	var members []member
	topics := make(map[string][]string)
	for group, byTopic := range r.groups {
		n := 0
		for topic, hs := range byTopic {
			topics[group] = append(topics[group], topic)
			if len(hs) > n {
				n = len(hs)
			}
		}
		for i := 0; i < n; i++ {
			m := member{group: group, handlers: make(map[string]Handler)}
			for topic, hs := range byTopic {
				m.handlers[topic] = hs[i%len(hs)]
			}
			members = append(members, m)
		}
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, m := range members {
		ch, err := r.conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open channel: %w", err)
		}
		for _, topic := range topics[m.group] {
			if err := r.declareQueue(ch, m.group, topic); err != nil {
				ch.Close()
				return err
			}
		}
		if err := ch.Qos(1, 0, false); err != nil {
			ch.Close()
			return fmt.Errorf("failed to set qos: %w", err)
		}
		deliveries, err := r.consume(ch, QueueName(m.group))
		if err != nil {
			ch.Close()
			return err
		}

		m := m
		g.Go(func() error {
			defer ch.Close()
			return r.dispatch(ctx, m.group, m.handlers, deliveries)
		})
	}
	return g.Wait()
}

// consume receives messages from a queue
func (r *RabbitMQ) consume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	messages, err := ch.Consume(
		queue, // queue name
		"",    // consumer tag
		false, // auto-ack (false = manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	r.logger.Info("👂 Listening on queue", zap.String("queue", queue))
	return messages, nil
}

func (r *RabbitMQ) dispatch(ctx context.Context, group string, handlers map[string]Handler, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("rabbitmq delivery channel closed")
			}

			msg := Message{
				Topic:   d.RoutingKey,
				Value:   d.Body,
				Headers: make(map[string]string, len(d.Headers)),
			}
			for k, v := range d.Headers {
				if s, ok := v.(string); ok {
					msg.Headers[k] = s
				}
			}
			msg.Key = msg.Headers[keyHeader]

			if h, ok := handlers[d.RoutingKey]; ok {
				deliver(ctx, r.logger, group, msg, h)
			} else {
				r.logger.Warn("⚠️ No handler for routing key", zap.String("routing_key", d.RoutingKey))
			}

			if err := d.Ack(false); err != nil {
				r.logger.Error("❌ Failed to ack message", zap.Error(err))
			}
		}
	}
}

// Close closes the connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	var err error
	if r.channel != nil {
		err = errors.Join(err, r.channel.Close())
	}
	if r.conn != nil {
		err = errors.Join(err, r.conn.Close())
	}
	return err
}
