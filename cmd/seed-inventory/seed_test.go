package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	stock map[int64]int
	fail  int64
}

func (f *fakeStore) Upsert(_ context.Context, productID int64, _ string, stock int) error {
	if productID == f.fail {
		return errors.New("boom")
	}
	f.stock[productID] = stock
	return nil
}

type fakeCache struct {
	values map[string]any
	err    error
}

func (f *fakeCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	if ttl != 0 {
		return errors.New("stock entries must not expire")
	}
	f.values[key] = value
	return nil
}

func TestReadSeed(t *testing.T) {
	records, err := readSeed(strings.NewReader(`[{"productId":7,"productName":"Widget","stock":3}]`))
	if err != nil {
		t.Fatalf("readSeed: %v", err)
	}
	if len(records) != 1 || records[0].ProductID != 7 || records[0].Stock != 3 {
		t.Errorf("records = %+v", records)
	}

	for _, bad := range []string{
		`not json`,
		`[{"productId":0,"stock":1}]`,
		`[{"productId":1,"stock":-1}]`,
	} {
		if _, err := readSeed(strings.NewReader(bad)); err == nil {
			t.Errorf("readSeed(%q) succeeded, want error", bad)
		}
	}
}

func TestSeed_UpsertsAndPrimesCache(t *testing.T) {
	store := &fakeStore{stock: map[int64]int{}}
	c := &fakeCache{values: map[string]any{}}

	if err := seed(context.Background(), store, c, defaultSeed, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(store.stock) != len(defaultSeed) {
		t.Errorf("upserted %d products, want %d", len(store.stock), len(defaultSeed))
	}
	if got := c.values["inventory:1"]; got != 100 {
		t.Errorf("inventory:1 = %v, want 100", got)
	}
}

func TestSeed_CacheFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{stock: map[int64]int{}}
	c := &fakeCache{err: errors.New("redis down")}

	if err := seed(context.Background(), store, c, defaultSeed[:1], zaptest.NewLogger(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if store.stock[1] != 100 {
		t.Errorf("stock not written")
	}
}

func TestSeed_StoreFailureStops(t *testing.T) {
	store := &fakeStore{stock: map[int64]int{}, fail: 2}
	c := &fakeCache{values: map[string]any{}}

	if err := seed(context.Background(), store, c, defaultSeed, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := store.stock[3]; ok {
		t.Error("seeding continued after failure")
	}
}
