package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestMemoryBus_EachGroupReceivesEveryMessageOnce(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 4)

	var inventoryA, inventoryB, notification atomic.Int64
	count := func(c *atomic.Int64) Handler {
		return func(ctx context.Context, msg Message) error {
			c.Add(1)
			return nil
		}
	}

	if err := bus.Subscribe(TopicOrderCreated, GroupInventory, count(&inventoryA)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe(TopicOrderCreated, GroupInventory, count(&inventoryB)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe(TopicOrderCreated, GroupNotification, count(&notification)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	const total = 200
	for i := 0; i < total; i++ {
		key := fmt.Sprintf("ORD%d", i)
		if err := bus.Publish(context.Background(), TopicOrderCreated, key, []byte(`{}`)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	bus.Close()

	if got := inventoryA.Load() + inventoryB.Load(); got != total {
		t.Errorf("inventory group got %d deliveries, want %d", got, total)
	}
	if got := notification.Load(); got != total {
		t.Errorf("notification group got %d deliveries, want %d", got, total)
	}
}

func TestMemoryBus_PerKeyOrdering(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 8)

	var mu sync.Mutex
	seen := make(map[string][]int)
	handler := func(ctx context.Context, msg Message) error {
		var seq int
		fmt.Sscanf(string(msg.Value), "%d", &seq)
		mu.Lock()
		seen[msg.Key] = append(seen[msg.Key], seq)
		mu.Unlock()
		return nil
	}
	bus.Subscribe(TopicOrderCreated, GroupInventory, handler)
	bus.Subscribe(TopicOrderCreated, GroupInventory, handler)

	keys := []string{"ORD-a", "ORD-b", "ORD-c", "ORD-d", "ORD-e"}
	for seq := 0; seq < 50; seq++ {
		for _, k := range keys {
			bus.Publish(context.Background(), TopicOrderCreated, k, []byte(fmt.Sprint(seq)))
		}
	}
	bus.Close()

	for _, k := range keys {
		got := seen[k]
		if len(got) != 50 {
			t.Fatalf("key %s: got %d messages, want 50", k, len(got))
		}
		for i, seq := range got {
			if seq != i {
				t.Fatalf("key %s: position %d has seq %d", k, i, seq)
			}
		}
	}
}

func TestMemoryBus_FailedHandlerIsNotRedelivered(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 1)

	var calls atomic.Int64
	bus.Subscribe(TopicInventoryResult, GroupNotification, func(ctx context.Context, msg Message) error {
		calls.Add(1)
		return errors.New("channel down")
	})

	bus.Publish(context.Background(), TopicInventoryResult, "ORD1", []byte(`{}`))
	bus.Publish(context.Background(), TopicInventoryResult, "ORD2", []byte(`{}`))
	bus.Close()

	if got := calls.Load(); got != 2 {
		t.Errorf("handler called %d times, want 2", got)
	}
}

func TestMemoryBus_PanickingHandlerDoesNotStopPartition(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 1)

	var calls atomic.Int64
	bus.Subscribe(TopicOrderCreated, GroupInventory, func(ctx context.Context, msg Message) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	})

	bus.Publish(context.Background(), TopicOrderCreated, "k", []byte(`1`))
	bus.Publish(context.Background(), TopicOrderCreated, "k", []byte(`2`))
	bus.Close()

	if got := calls.Load(); got != 2 {
		t.Errorf("handler called %d times, want 2", got)
	}
}

func TestMemoryBus_NoSubscribersDropsMessage(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 2)
	if err := bus.Publish(context.Background(), TopicOrderCreated, "ORD1", []byte(`{}`)); err != nil {
		t.Fatalf("publish without subscribers: %v", err)
	}
	bus.Close()
}

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 2)
	bus.Close()

	err := bus.Publish(context.Background(), TopicOrderCreated, "ORD1", nil)
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
	if err := bus.Subscribe(TopicOrderCreated, GroupInventory, nil); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed on subscribe, got %v", err)
	}
}

func TestMemoryBus_CloseKeepsPublishesFromHandlers(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 1)

	release := make(chan struct{})
	var results atomic.Int64
	forward := func(ctx context.Context, msg Message) error {
		<-release
		return bus.Publish(ctx, TopicInventoryResult, msg.Key, msg.Value)
	}
	if err := bus.Subscribe(TopicOrderCreated, GroupInventory, forward); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	err := bus.Subscribe(TopicInventoryResult, GroupNotification, func(ctx context.Context, msg Message) error {
		results.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := bus.Publish(context.Background(), TopicOrderCreated, fmt.Sprintf("ORD%d", i), []byte(`{}`)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	closed := make(chan error, 1)
	go func() { closed <- bus.Close() }()

	// Callers outside the bus are turned away as soon as Close starts.
	deadline := time.Now().Add(2 * time.Second)
	for !errors.Is(bus.Publish(context.Background(), "unrouted", "late", nil), ErrBusClosed) {
		if time.Now().After(deadline) {
			t.Fatal("publish still accepted after Close started")
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	if err := <-closed; err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := results.Load(); got != 3 {
		t.Errorf("results delivered = %d, want 3", got)
	}
	if err := bus.Publish(context.Background(), TopicOrderCreated, "ORD9", nil); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed after close, got %v", err)
	}
}

func TestMemoryBus_RunReturnsOnCancel(t *testing.T) {
	bus := NewMemoryBus(zaptest.NewLogger(t), 1)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}
