package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
)

type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// Typed adapts a handler of decoded values to a raw Handler. Payloads that
// fail to decode are reported as models.ErrMalformedMessage.
func Typed[T any](codec Codec[T], h func(ctx context.Context, v T) error) Handler {
	return func(ctx context.Context, msg Message) error {
		v, err := codec.Decode(msg.Value)
		if err != nil {
			return fmt.Errorf("%w: topic %s: %v", models.ErrMalformedMessage, msg.Topic, err)
		}
		return h(ctx, v)
	}
}

// PublishJSON encodes v and publishes it under key.
func PublishJSON[T any](ctx context.Context, p Publisher, topic, key string, v T) error {
	data, err := JSONCodec[T]{}.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.Publish(ctx, topic, key, data)
}
