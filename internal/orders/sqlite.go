// This file implements an SQLite-backed order repository.
package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteRepository implements Repository on SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates an SQLite repository with the given options.
// The DSN is a file path; its directory is created when missing.
func NewSQLiteRepository(opts ...Option) (*SQLiteRepository, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteRepository invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteRepository DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLite migrations failed", "error", err)
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	slog.Debug("SQLiteRepository ready", "path", cfg.DSN)
	return &SQLiteRepository{db: db}, nil
}

// StoreOrder inserts the order and returns the assigned id.
func (r *SQLiteRepository) StoreOrder(ctx context.Context, order models.OrderData) (string, error) {
	cartJSON, err := json.Marshal(order.Cart)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}

	id := newOrderID()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, tenant, customer_phone_number, transfers_phone_number,
			order_number, cart, subtotal, delivery_total, total, status, is_test, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, order.Tenant, order.CustomerPhoneNumber, order.TransfersPhoneNumber,
		order.OrderNumber, string(cartJSON), order.Subtotal, order.DeliveryTotal, order.Total,
		order.Status, order.IsTest, order.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteRepository StoreOrder failed", "error", err, "tenant", order.Tenant)
		return "", fmt.Errorf("insert order: %w", err)
	}

	slog.Info("SQLiteRepository stored order", "id", id, "tenant", order.Tenant, "orderNumber", order.OrderNumber)
	return id, nil
}

// GetOrder fetches an order by id, returning ErrOrderNotFound on a miss.
func (r *SQLiteRepository) GetOrder(ctx context.Context, id string) (*models.OrderData, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant, customer_phone_number, transfers_phone_number,
			order_number, cart, subtotal, delivery_total, total, status, is_test, created_at
		FROM orders WHERE id = ?`, id)

	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		slog.Error("SQLiteRepository GetOrder failed", "error", err, "id", id)
		return nil, err
	}
	return order, nil
}

// ListOrders returns all orders for a tenant, newest first.
func (r *SQLiteRepository) ListOrders(ctx context.Context, tenant string) ([]models.OrderData, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant, customer_phone_number, transfers_phone_number,
			order_number, cart, subtotal, delivery_total, total, status, is_test, created_at
		FROM orders WHERE tenant = ? ORDER BY created_at DESC`, tenant)
	if err != nil {
		slog.Error("SQLiteRepository ListOrders failed", "error", err, "tenant", tenant)
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// UpdateOrderStatus mutates the only mutable order field.
func (r *SQLiteRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if !models.IsValidOrderStatus(status) {
		return fmt.Errorf("invalid order status %q", status)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		slog.Error("SQLiteRepository UpdateOrderStatus failed", "error", err, "id", id)
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
