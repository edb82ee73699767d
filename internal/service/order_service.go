package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/cache"
	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// NewOrderNo returns "ORD" + epoch milliseconds + 8 random hex characters.
func NewOrderNo(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "ORD" + strconv.FormatInt(now.UnixMilli(), 10) + random
}

type OrderService struct {
	store     OrderStore
	cache     Cache
	publisher OrderEventPublisher
	cacheTTL  time.Duration
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewOrderService(store OrderStore, c Cache, publisher OrderEventPublisher, cacheTTL time.Duration, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:     store,
		cache:     c,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		logger:    logger,
		tracer:    otel.Tracer("order-service"),
		now:       time.Now,
	}
}

func validateOrderRequest(req models.CreateOrderRequest) error {
	switch {
	case req.UserID == 0:
		return fmt.Errorf("%w: userId is required", models.ErrInvalidOrder)
	case req.ProductID == 0:
		return fmt.Errorf("%w: productId is required", models.ErrInvalidOrder)
	case req.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", models.ErrInvalidOrder)
	case req.TotalAmount.IsNegative():
		return fmt.Errorf("%w: totalAmount must not be negative", models.ErrInvalidOrder)
	}
	return nil
}

// CreateOrder persists a PENDING order, then writes it to the cache and
// publishes OrderCreatedEvent. Cache and publish failures are logged; the
// order stays persisted.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.create")
	defer span.End()

	if err := validateOrderRequest(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	order := &models.Order{
		OrderNo:     NewOrderNo(now),
		UserID:      req.UserID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		TotalAmount: req.TotalAmount.Round(2),
		Status:      models.OrderStatusPending,
		CreateTime:  now,
		UpdateTime:  now,
	}
	span.SetAttributes(attribute.String("order.no", order.OrderNo))

	if err := s.store.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.cache.Set(ctx, cache.OrderKey(order.OrderNo), order, s.cacheTTL); err != nil {
		s.logger.Warn("⚠️ Failed to cache order", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
		s.logger.Error("❌ Failed to publish order-created event",
			zap.String("order_no", order.OrderNo),
			zap.Error(err),
		)
	}

	s.logger.Info("✅ Order created",
		zap.String("order_no", order.OrderNo),
		zap.Int64("user_id", order.UserID),
		zap.Int64("product_id", order.ProductID),
		zap.Int("quantity", order.Quantity),
	)
	return order, nil
}

// GetOrder reads through the cache. Cache errors of any kind fall back to
// the store; a store hit refreshes the cache.
func (s *OrderService) GetOrder(ctx context.Context, orderNo string) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.get", trace.WithAttributes(attribute.String("order.no", orderNo)))
	defer span.End()

	key := cache.OrderKey(orderNo)

	// A cached JSON null decodes cleanly into a zero order, so an entry
	// only counts as a hit when it carries an order number.
	var cached models.Order
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil && cached.OrderNo != "":
		s.logger.Debug("📦 Cache HIT", zap.String("key", key))
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	case err == nil, errors.Is(err, cache.ErrMiss):
		s.logger.Debug("💾 Cache MISS", zap.String("key", key))
	default:
		s.logger.Warn("⚠️ Cache read failed, using store", zap.String("key", key), zap.Error(err))
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	order, err := s.store.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if !errors.Is(err, models.ErrOrderNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store read failed")
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, key, order, s.cacheTTL); err != nil {
		s.logger.Warn("⚠️ Failed to cache order", zap.String("key", key), zap.Error(err))
	}
	return order, nil
}

// GetUserOrders reads from the store only, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.store.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
