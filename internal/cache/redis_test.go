package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func getRedisCache(t *testing.T) *RedisCache {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	c, err := NewRedisCache(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0, zaptest.NewLogger(t))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeys(t *testing.T) {
	if got := OrderKey("ORD1700000000000abcd1234"); got != "order:ORD1700000000000abcd1234" {
		t.Errorf("OrderKey = %q", got)
	}
	if got := InventoryKey(42); got != "inventory:42" {
		t.Errorf("InventoryKey = %q", got)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	c := getRedisCache(t)

	var v int
	err := c.Get(context.Background(), "inventory:test-missing-key", &v)
	if !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestRedisCache_IntegerIsPlain(t *testing.T) {
	c := getRedisCache(t)
	ctx := context.Background()
	key := InventoryKey(990001)
	t.Cleanup(func() { c.Delete(ctx, key) })

	if err := c.Set(ctx, key, 17, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if raw != "17" {
		t.Errorf("stored %q, want plain integer", raw)
	}
	if ttl := c.client.TTL(ctx, key).Val(); ttl != -1 {
		t.Errorf("expected no expiry, got %v", ttl)
	}

	var stock int
	if err := c.Get(ctx, key, &stock); err != nil || stock != 17 {
		t.Errorf("Get = %d, %v", stock, err)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	c := getRedisCache(t)
	ctx := context.Background()
	key := OrderKey("ORD-ttl-test")
	t.Cleanup(func() { c.Delete(ctx, key) })

	if err := c.Set(ctx, key, map[string]string{"orderNo": "ORD-ttl-test"}, 30*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	ttl := c.client.TTL(ctx, key).Val()
	if ttl <= 29*time.Minute || ttl > 30*time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}
}
