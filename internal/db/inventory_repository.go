package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
)

type InventoryRepository struct {
	db *DB
}

func NewInventoryRepository(database *DB) *InventoryRepository {
	return &InventoryRepository{db: database}
}

// GetByProductID returns models.ErrInventoryNotFound when no row matches.
func (r *InventoryRepository) GetByProductID(ctx context.Context, productID int64) (*models.InventoryRecord, error) {
	query := r.db.Dialect.Rebind(`
		SELECT id, product_id, product_name, stock, version, update_time
		FROM t_inventory WHERE product_id = ?`)

	var rec models.InventoryRecord
	err := r.db.Conn.QueryRowContext(ctx, query, productID).
		Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &rec.Stock, &rec.Version, &rec.UpdateTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	rec.UpdateTime = rec.UpdateTime.UTC()

	return &rec, nil
}

// UpdateStock writes newStock and bumps the version only if the row still
// carries expectedVersion. Zero affected rows is models.ErrVersionConflict.
func (r *InventoryRepository) UpdateStock(ctx context.Context, productID int64, newStock int, expectedVersion int64) error {
	query := r.db.Dialect.Rebind(`
		UPDATE t_inventory
		SET stock = ?, version = version + 1, update_time = ?
		WHERE product_id = ? AND version = ?`)

	result, err := r.db.Conn.ExecContext(ctx, query, newStock, time.Now().UTC(), productID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrVersionConflict
	}

	return nil
}

// Upsert creates or resets a record. Resetting bumps the version so
// in-flight decrements against the old stock fail their compare.
func (r *InventoryRepository) Upsert(ctx context.Context, productID int64, productName string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock must not be negative: %d", stock)
	}

	query := r.db.Dialect.Rebind(r.db.Dialect.upsertInventory)
	if _, err := r.db.Conn.ExecContext(ctx, query, productID, productName, stock, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert inventory: %w", err)
	}
	return nil
}
