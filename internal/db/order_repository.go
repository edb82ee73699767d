package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ProfilePlus/ecommerce-microservices/internal/models"
)

const orderColumns = `id, order_no, user_id, product_id, product_name, quantity, total_amount, status, create_time, update_time`

type OrderRepository struct {
	db *DB
}

func NewOrderRepository(database *DB) *OrderRepository {
	return &OrderRepository{db: database}
}

// Create inserts the order in a single transaction and sets order.ID.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	// Start transaction
	tx, err := r.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO t_order (order_no, user_id, product_id, product_name, quantity, total_amount, status, create_time, update_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		order.OrderNo,
		order.UserID,
		order.ProductID,
		order.ProductName,
		order.Quantity,
		order.TotalAmount,
		order.Status,
		order.CreateTime,
		order.UpdateTime,
	}

	if r.db.Dialect.returning {
		err = tx.QueryRowContext(ctx, r.db.Dialect.Rebind(query+` RETURNING id`), args...).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, r.db.Dialect.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		if order.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read order id: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByOrderNo returns models.ErrOrderNotFound when no row matches.
func (r *OrderRepository) GetByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	query := r.db.Dialect.Rebind(`SELECT ` + orderColumns + ` FROM t_order WHERE order_no = ?`)

	order, err := scanOrder(r.db.Conn.QueryRowContext(ctx, query, orderNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// ListByUserID returns the user's orders, newest first. No orders is an
// empty slice.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	query := r.db.Dialect.Rebind(`SELECT ` + orderColumns + ` FROM t_order WHERE user_id = ? ORDER BY create_time DESC, id DESC`)

	rows, err := r.db.Conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNo,
		&o.UserID,
		&o.ProductID,
		&o.ProductName,
		&o.Quantity,
		&o.TotalAmount,
		&o.Status,
		&o.CreateTime,
		&o.UpdateTime,
	)
	if err != nil {
		return nil, err
	}
	o.CreateTime = o.CreateTime.UTC()
	o.UpdateTime = o.UpdateTime.UTC()
	return &o, nil
}
