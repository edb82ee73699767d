package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is published when a new order is persisted.
// It carries a full snapshot of the order.
type OrderCreatedEvent struct {
	OrderNo     string          `json:"orderNo"`
	UserID      int64           `json:"userId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	CreateTime  time.Time       `json:"createTime"`
	UpdateTime  time.Time       `json:"updateTime"`
}

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreateTime:  o.CreateTime,
		UpdateTime:  o.UpdateTime,
	}
}

type InventoryResultType string

const (
	InventoryDeducted InventoryResultType = "INVENTORY_DEDUCTED"
	// InventoryInsufficient is part of the wire vocabulary but is not
	// published yet: insufficient stock is only logged by the ledger.
	InventoryInsufficient InventoryResultType = "INVENTORY_INSUFFICIENT"
)

// InventoryResultEvent is published by the inventory ledger for the
// notification dispatcher.
type InventoryResultEvent struct {
	OrderNo   string              `json:"orderNo"`
	ProductID int64               `json:"productId"`
	Type      InventoryResultType `json:"type"`
	Message   string              `json:"message"`
}
