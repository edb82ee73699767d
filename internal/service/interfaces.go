package service

import (
	"context"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
)

// Cache is the shared key/value hint store. Implementations return
// cache.ErrMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Order, error)
}

type InventoryStore interface {
	GetByProductID(ctx context.Context, productID int64) (*models.InventoryRecord, error)
	UpdateStock(ctx context.Context, productID int64, newStock int, expectedVersion int64) error
}

type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
}
