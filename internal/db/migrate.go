package db

import (
	"context"
	"fmt"
)

// Migrate creates t_order and t_inventory when they do not exist.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range db.Dialect.schema {
		if _, err := db.Conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
