package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/cache"
	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
)

// fakeCache stores JSON like RedisCache does.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	getHits int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	c.getHits++
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) raw(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return string(v), ok
}

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[string]models.Order
	nextID    int64
	createErr error
	reads     int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]models.Order)}
}

func (s *fakeOrderStore) Create(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	order.ID = s.nextID
	s.orders[order.OrderNo] = *order
	return nil
}

func (s *fakeOrderStore) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	o, ok := s.orders[orderNo]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return &o, nil
}

func (s *fakeOrderStore) ListByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.Order
	err       error
}

func (p *fakePublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, order)
	return nil
}

// fakeInventoryStore applies the same version compare as the SQL store.
// beforeRead, when set, runs before every read outside the lock.
type fakeInventoryStore struct {
	mu         sync.Mutex
	records    map[int64]models.InventoryRecord
	reads      int
	updates    int
	beforeRead func(n int)
	forceCAS   bool
}

func newFakeInventoryStore(records ...models.InventoryRecord) *fakeInventoryStore {
	s := &fakeInventoryStore{records: make(map[int64]models.InventoryRecord)}
	for _, r := range records {
		s.records[r.ProductID] = r
	}
	return s
}

func (s *fakeInventoryStore) GetByProductID(ctx context.Context, productID int64) (*models.InventoryRecord, error) {
	s.mu.Lock()
	s.reads++
	n := s.reads
	rec, ok := s.records[productID]
	hook := s.beforeRead
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if !ok {
		return nil, models.ErrInventoryNotFound
	}
	return &rec, nil
}

func (s *fakeInventoryStore) UpdateStock(ctx context.Context, productID int64, newStock int, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[productID]
	if !ok || rec.Version != expectedVersion || s.forceCAS {
		return models.ErrVersionConflict
	}
	if newStock < 0 {
		panic("stock went negative")
	}
	rec.Stock = newStock
	rec.Version++
	s.records[productID] = rec
	s.updates++
	return nil
}

func (s *fakeInventoryStore) record(productID int64) models.InventoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[productID]
}
