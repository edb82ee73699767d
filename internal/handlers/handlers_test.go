package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockOrderService struct {
	createFn func(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	getFn    func(ctx context.Context, orderNo string) (*models.Order, error)
	listFn   func(ctx context.Context, userID int64) ([]models.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	return m.createFn(ctx, req)
}

func (m *mockOrderService) GetOrder(ctx context.Context, orderNo string) (*models.Order, error) {
	return m.getFn(ctx, orderNo)
}

func (m *mockOrderService) GetUserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return m.listFn(ctx, userID)
}

type mockStockReader struct {
	getFn func(ctx context.Context, productID int64) (int, error)
}

func (m *mockStockReader) GetStock(ctx context.Context, productID int64) (int, error) {
	return m.getFn(ctx, productID)
}

func newRouter(t *testing.T, orders OrderService, stock StockReader) *gin.Engine {
	r := gin.New()
	if orders != nil {
		NewOrderHandler(orders, zaptest.NewLogger(t)).Routes(r)
	}
	if stock != nil {
		NewInventoryHandler(stock, zaptest.NewLogger(t)).Routes(r)
	}
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrder_Created(t *testing.T) {
	svc := &mockOrderService{createFn: func(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
		if req.UserID != 7 || req.ProductID != 1 || req.Quantity != 2 || req.TotalAmount.String() != "19.9" {
			t.Errorf("unexpected request %+v", req)
		}
		return &models.Order{OrderNo: "ORD1", Status: models.OrderStatusPending}, nil
	}}

	w := serve(newRouter(t, svc, nil), http.MethodPost, "/api/orders",
		`{"userId":7,"productId":1,"productName":"Pen","quantity":2,"totalAmount":"19.90"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var got models.Order
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.OrderNo != "ORD1" || got.Status != models.OrderStatusPending {
		t.Errorf("unexpected body %s", w.Body)
	}
}

func TestCreateOrder_BadRequest(t *testing.T) {
	svc := &mockOrderService{createFn: func(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
		return nil, models.ErrInvalidOrder
	}}
	r := newRouter(t, svc, nil)

	if w := serve(r, http.MethodPost, "/api/orders", `{"userId":`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed json: status = %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/api/orders", `{"userId":7,"productId":1,"quantity":-1}`); w.Code != http.StatusBadRequest {
		t.Errorf("invalid order: status = %d", w.Code)
	}
}

func TestGetOrder(t *testing.T) {
	svc := &mockOrderService{getFn: func(ctx context.Context, orderNo string) (*models.Order, error) {
		switch orderNo {
		case "ORD1":
			return &models.Order{OrderNo: "ORD1"}, nil
		case "ORD-broken":
			return nil, errors.New("connection reset")
		}
		return nil, models.ErrOrderNotFound
	}}
	r := newRouter(t, svc, nil)

	cases := map[string]int{
		"/api/orders/ORD1":       http.StatusOK,
		"/api/orders/ORD404":     http.StatusNotFound,
		"/api/orders/ORD-broken": http.StatusInternalServerError,
	}
	for path, want := range cases {
		if w := serve(r, http.MethodGet, path, ""); w.Code != want {
			t.Errorf("GET %s = %d, want %d", path, w.Code, want)
		}
	}
}

func TestGetUserOrders(t *testing.T) {
	svc := &mockOrderService{listFn: func(ctx context.Context, userID int64) ([]models.Order, error) {
		return []models.Order{}, nil
	}}
	r := newRouter(t, svc, nil)

	w := serve(r, http.MethodGet, "/api/orders/user/42", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("status %d body %q, want 200 []", w.Code, w.Body)
	}

	if w := serve(r, http.MethodGet, "/api/orders/user/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric user: status = %d", w.Code)
	}
}

func TestGetStock(t *testing.T) {
	stock := &mockStockReader{getFn: func(ctx context.Context, productID int64) (int, error) {
		if productID == 1 {
			return 42, nil
		}
		return 0, models.ErrInventoryNotFound
	}}
	r := newRouter(t, nil, stock)

	w := serve(r, http.MethodGet, "/api/inventory/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		ProductID int64 `json:"productId"`
		Stock     int   `json:"stock"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.ProductID != 1 || body.Stock != 42 {
		t.Errorf("unexpected body %s", w.Body)
	}

	if w := serve(r, http.MethodGet, "/api/inventory/2", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing product: status = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/inventory/x", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad product id: status = %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler("inventory-service", map[string]Check{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("down") },
	})
	r := gin.New()
	r.GET("/health", h.HealthCheck)

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status       string            `json:"status"`
		Service      string            `json:"service"`
		Dependencies map[string]string `json:"dependencies"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Status != "degraded" || body.Service != "inventory-service" || body.Dependencies["redis"] != "unhealthy" {
		t.Errorf("unexpected body %s", w.Body)
	}
}
