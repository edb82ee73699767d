package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/cache"
	"go.uber.org/zap"
)

type seedRecord struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Stock       int    `json:"stock"`
}

var defaultSeed = []seedRecord{
	{ProductID: 1, ProductName: "iPhone 15", Stock: 100},
	{ProductID: 2, ProductName: "MacBook Pro", Stock: 50},
	{ProductID: 3, ProductName: "AirPods Pro", Stock: 200},
	{ProductID: 4, ProductName: "iPad Air", Stock: 80},
	{ProductID: 5, ProductName: "Apple Watch", Stock: 120},
}

type inventoryUpserter interface {
	Upsert(ctx context.Context, productID int64, productName string, stock int) error
}

type stockCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

func readSeed(r io.Reader) ([]seedRecord, error) {
	var records []seedRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for _, rec := range records {
		if rec.ProductID <= 0 {
			return nil, fmt.Errorf("invalid productId %d", rec.ProductID)
		}
		if rec.Stock < 0 {
			return nil, fmt.Errorf("product %d: stock must not be negative", rec.ProductID)
		}
	}
	return records, nil
}

// seed writes every record to the store and then primes the stock cache.
// Cache failures are logged; the store stays authoritative.
func seed(ctx context.Context, store inventoryUpserter, c stockCache, records []seedRecord, logger *zap.Logger) error {
	for _, rec := range records {
		if err := store.Upsert(ctx, rec.ProductID, rec.ProductName, rec.Stock); err != nil {
			return fmt.Errorf("product %d: %w", rec.ProductID, err)
		}
		if err := c.Set(ctx, cache.InventoryKey(rec.ProductID), rec.Stock, 0); err != nil {
			logger.Warn("⚠️ Failed to prime stock cache", zap.Int64("product_id", rec.ProductID), zap.Error(err))
		}
		logger.Info("🌱 Seeded inventory",
			zap.Int64("product_id", rec.ProductID),
			zap.String("product_name", rec.ProductName),
			zap.Int("stock", rec.Stock),
		)
	}
	return nil
}
