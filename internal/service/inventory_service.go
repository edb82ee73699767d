package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/cache"
	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CASPolicy bounds how often a decrement re-reads and retries after losing
// the version compare. MaxAttempts of 1 fails fast with
// models.ErrVersionConflict.
type CASPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultCASPolicy() CASPolicy {
	return CASPolicy{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     200 * time.Millisecond,
	}
}

func (p CASPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.MaxElapsedTime = 0

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

type InventoryService struct {
	store  InventoryStore
	cache  Cache
	policy CASPolicy
	logger *zap.Logger
	tracer trace.Tracer
}

func NewInventoryService(store InventoryStore, c Cache, policy CASPolicy, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  c,
		policy: policy,
		logger: logger,
		tracer: otel.Tracer("inventory-service"),
	}
}

// DeductInventory decrements stock with a version compare-and-swap.
// It returns false with a nil error when stock is insufficient, in which
// case nothing is written.
func (s *InventoryService) DeductInventory(ctx context.Context, productID int64, quantity int) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.deduct", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if quantity <= 0 {
		return false, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidOrder)
	}

	var (
		deducted bool
		newStock int
		attempts int
	)
	op := func() error {
		attempts++
		rec, err := s.store.GetByProductID(ctx, productID)
		if err != nil {
			return backoff.Permanent(err)
		}

		if rec.Stock < quantity {
			deducted = false
			return nil
		}

		newStock = rec.Stock - quantity
		if err := s.store.UpdateStock(ctx, productID, newStock, rec.Version); err != nil {
			if errors.Is(err, models.ErrVersionConflict) {
				s.logger.Debug("🔁 Version conflict",
					zap.Int64("product_id", productID),
					zap.Int64("version", rec.Version),
					zap.Int("attempt", attempts),
				)
				return err
			}
			return backoff.Permanent(err)
		}
		deducted = true
		return nil
	}

	err := backoff.Retry(op, s.policy.backOff(ctx))
	span.SetAttributes(attribute.Int("cas.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deduct failed")
		return false, err
	}

	if !deducted {
		span.SetAttributes(attribute.Bool("inventory.insufficient", true))
		return false, nil
	}

	// The entry has no TTL and carries no version. Two decrements that win
	// their compares back to back can land here in either order, leaving
	// the older stock cached until the next decrement or seed overwrites it.
	if err := s.cache.Set(ctx, cache.InventoryKey(productID), newStock, 0); err != nil {
		s.logger.Warn("⚠️ Failed to cache stock", zap.Int64("product_id", productID), zap.Error(err))
	}

	s.logger.Info("✅ Inventory deducted",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("stock", newStock),
	)
	return true, nil
}

// GetStock reads through the cache.
func (s *InventoryService) GetStock(ctx context.Context, productID int64) (int, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.stock", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	key := cache.InventoryKey(productID)

	var stock *int
	err := s.cache.Get(ctx, key, &stock)
	switch {
	case err == nil && stock != nil:
		s.logger.Debug("📦 Cache HIT", zap.String("key", key))
		return *stock, nil
	case err == nil, errors.Is(err, cache.ErrMiss):
		s.logger.Debug("💾 Cache MISS", zap.String("key", key))
	default:
		s.logger.Warn("⚠️ Cache read failed, using store", zap.String("key", key), zap.Error(err))
	}

	rec, err := s.store.GetByProductID(ctx, productID)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, key, rec.Stock, 0); err != nil {
		s.logger.Warn("⚠️ Failed to cache stock", zap.String("key", key), zap.Error(err))
	}
	return rec.Stock, nil
}
