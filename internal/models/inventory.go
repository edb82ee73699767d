package models

import "time"

// InventoryRecord is the stock ledger row for one product. Version is the
// compare-and-swap token: it grows by one per successful decrement.
type InventoryRecord struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Stock       int       `json:"stock"`
	Version     int64     `json:"version"`
	UpdateTime  time.Time `json:"updateTime"`
}
