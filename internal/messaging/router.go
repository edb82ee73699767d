package messaging

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Router sends each topic to the backend registered for it, falling back to
// a default backend. It lets order-created travel over Kafka while
// notifications travel over RabbitMQ behind one Bus.
type Router struct {
	fallback Bus
	routes   map[string]Bus
}

func NewRouter(fallback Bus) *Router {
	return &Router{
		fallback: fallback,
		routes:   make(map[string]Bus),
	}
}

func (r *Router) Route(topic string, b Bus) *Router {
	r.routes[topic] = b
	return r
}

func (r *Router) backend(topic string) Bus {
	if b, ok := r.routes[topic]; ok {
		return b
	}
	return r.fallback
}

func (r *Router) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return r.backend(topic).Publish(ctx, topic, key, payload)
}

func (r *Router) Subscribe(topic, group string, h Handler) error {
	return r.backend(topic).Subscribe(topic, group, h)
}

func (r *Router) backends() []Bus {
	seen := make(map[Bus]bool)
	var out []Bus
	add := func(b Bus) {
		if b != nil && !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	add(r.fallback)
	for _, b := range r.routes {
		add(b)
	}
	return out
}

func (r *Router) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, b := range r.backends() {
		b := b
		g.Go(func() error { return b.Run(ctx) })
	}
	return g.Wait()
}

func (r *Router) Close() error {
	var err error
	for _, b := range r.backends() {
		err = errors.Join(err, b.Close())
	}
	return err
}
