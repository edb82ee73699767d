package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"go.uber.org/zap/zaptest"
)

type funcChannel struct {
	name   string
	sendFn func(ctx context.Context, event models.InventoryResultEvent) error
}

func (c *funcChannel) Name() string { return c.name }

func (c *funcChannel) Send(ctx context.Context, event models.InventoryResultEvent) error {
	return c.sendFn(ctx, event)
}

var deducted = models.InventoryResultEvent{
	OrderNo:   "ORD1714557600123abcdef12",
	ProductID: 1,
	Type:      models.InventoryDeducted,
	Message:   "inventory deducted",
}

func TestDispatch_FailingChannelDoesNotBlockOthers(t *testing.T) {
	var emailCalls atomic.Int64
	channels := []Channel{
		&funcChannel{name: "sms", sendFn: func(ctx context.Context, e models.InventoryResultEvent) error {
			return errors.New("gateway timeout")
		}},
		&funcChannel{name: "email", sendFn: func(ctx context.Context, e models.InventoryResultEvent) error {
			emailCalls.Add(1)
			return nil
		}},
	}

	results := NewDispatcher(channels, zaptest.NewLogger(t)).Dispatch(context.Background(), deducted)

	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Channel != "sms" || results[0].Err == nil {
		t.Errorf("sms result = %+v, want failure", results[0])
	}
	if results[1].Channel != "email" || results[1].Err != nil {
		t.Errorf("email result = %+v, want success", results[1])
	}
	if emailCalls.Load() != 1 {
		t.Errorf("email sent %d times, want exactly 1 (no retries)", emailCalls.Load())
	}
}

func TestDispatch_ChannelsRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int64

	slow := func(ctx context.Context, e models.InventoryResultEvent) error {
		if started.Add(1) == 2 {
			close(release)
		}
		select {
		case <-release:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("channels ran sequentially")
		}
	}
	channels := []Channel{&funcChannel{name: "sms", sendFn: slow}, &funcChannel{name: "email", sendFn: slow}}

	for _, r := range NewDispatcher(channels, zaptest.NewLogger(t)).Dispatch(context.Background(), deducted) {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Channel, r.Err)
		}
	}
}

func TestDispatch_PanicIsContained(t *testing.T) {
	channels := []Channel{
		&funcChannel{name: "sms", sendFn: func(ctx context.Context, e models.InventoryResultEvent) error { panic("nil modem") }},
		NewEmailChannel(zaptest.NewLogger(t)),
	}

	results := NewDispatcher(channels, zaptest.NewLogger(t)).Dispatch(context.Background(), deducted)
	if results[0].Err == nil {
		t.Error("panicking channel must report an error")
	}
	if results[1].Err != nil {
		t.Errorf("email failed: %v", results[1].Err)
	}
}

func TestChannelsByName(t *testing.T) {
	channels, err := ChannelsByName([]string{"sms", "email"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("ChannelsByName failed: %v", err)
	}
	if len(channels) != 2 || channels[0].Name() != "sms" || channels[1].Name() != "email" {
		t.Errorf("unexpected channels %v", channels)
	}

	if _, err := ChannelsByName([]string{"pager"}, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error for unknown channel")
	}
}
