package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ProfilePlus/ecommerce-microservices/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

const (
	DriverPostgres = config.DBPostgres
	DriverMySQL    = config.DBMySQL
)

// Dialect holds the few statements that differ between the supported
// drivers. Queries are written with "?" placeholders and rebound per dialect.
type Dialect struct {
	Name            string
	numbered        bool
	returning       bool
	schema          []string
	upsertInventory string
}

var postgresDialect = Dialect{
	Name:      DriverPostgres,
	numbered:  true,
	returning: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS t_order (
			id           BIGSERIAL PRIMARY KEY,
			order_no     VARCHAR(64)   NOT NULL UNIQUE,
			user_id      BIGINT        NOT NULL,
			product_id   BIGINT        NOT NULL,
			product_name VARCHAR(255)  NOT NULL DEFAULT '',
			quantity     INT           NOT NULL CHECK (quantity > 0),
			total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
			status       VARCHAR(16)   NOT NULL,
			create_time  TIMESTAMPTZ   NOT NULL,
			update_time  TIMESTAMPTZ   NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_t_order_user_id ON t_order (user_id)`,
		`CREATE TABLE IF NOT EXISTS t_inventory (
			id           BIGSERIAL PRIMARY KEY,
			product_id   BIGINT       NOT NULL UNIQUE,
			product_name VARCHAR(255) NOT NULL DEFAULT '',
			stock        INT          NOT NULL CHECK (stock >= 0),
			version      BIGINT       NOT NULL DEFAULT 0,
			update_time  TIMESTAMPTZ  NOT NULL
		)`,
	},
	upsertInventory: `
		INSERT INTO t_inventory (product_id, product_name, stock, version, update_time)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT (product_id) DO UPDATE SET
			product_name = EXCLUDED.product_name,
			stock        = EXCLUDED.stock,
			version      = t_inventory.version + 1,
			update_time  = EXCLUDED.update_time`,
}

var mysqlDialect = Dialect{
	Name: DriverMySQL,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS t_order (
			id           BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_no     VARCHAR(64)   NOT NULL UNIQUE,
			user_id      BIGINT        NOT NULL,
			product_id   BIGINT        NOT NULL,
			product_name VARCHAR(255)  NOT NULL DEFAULT '',
			quantity     INT           NOT NULL CHECK (quantity > 0),
			total_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
			status       VARCHAR(16)   NOT NULL,
			create_time  DATETIME(6)   NOT NULL,
			update_time  DATETIME(6)   NOT NULL,
			INDEX idx_t_order_user_id (user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS t_inventory (
			id           BIGINT AUTO_INCREMENT PRIMARY KEY,
			product_id   BIGINT       NOT NULL UNIQUE,
			product_name VARCHAR(255) NOT NULL DEFAULT '',
			stock        INT          NOT NULL CHECK (stock >= 0),
			version      BIGINT       NOT NULL DEFAULT 0,
			update_time  DATETIME(6)  NOT NULL
		)`,
	},
	upsertInventory: `
		INSERT INTO t_inventory (product_id, product_name, stock, version, update_time)
		VALUES (?, ?, ?, 0, ?)
		ON DUPLICATE KEY UPDATE
			product_name = VALUES(product_name),
			stock        = VALUES(stock),
			version      = version + 1,
			update_time  = VALUES(update_time)`,
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres, "":
		return postgresDialect, nil
	case DriverMySQL:
		return mysqlDialect, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind rewrites "?" placeholders to "$1", "$2", ... for numbered dialects.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type DB struct {
	Conn    *sql.DB
	Dialect Dialect
}

// Open connects with the given driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	// Test connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Conn: conn, Dialect: dialect}, nil
}

func (db *DB) Close() error {
	return db.Conn.Close()
}
