// This file implements a PostgreSQL-backed order repository.
package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a Postgres repository based on provided options.
func NewPostgresRepository(opts ...Option) (*PostgresRepository, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresRepository invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresRepository DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Postgres migrations failed", "error", err)
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	slog.Debug("PostgresRepository ready")
	return &PostgresRepository{db: db}, nil
}

// StoreOrder inserts the order and returns the assigned id.
func (r *PostgresRepository) StoreOrder(ctx context.Context, order models.OrderData) (string, error) {
	cartJSON, err := json.Marshal(order.Cart)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}

	id := newOrderID()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, tenant, customer_phone_number, transfers_phone_number,
			order_number, cart, subtotal, delivery_total, total, status, is_test, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, order.Tenant, order.CustomerPhoneNumber, order.TransfersPhoneNumber,
		order.OrderNumber, cartJSON, order.Subtotal, order.DeliveryTotal, order.Total,
		order.Status, order.IsTest, order.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresRepository StoreOrder failed", "error", err, "tenant", order.Tenant)
		return "", fmt.Errorf("insert order: %w", err)
	}

	slog.Info("PostgresRepository stored order", "id", id, "tenant", order.Tenant, "orderNumber", order.OrderNumber)
	return id, nil
}

// GetOrder fetches an order by id, returning ErrOrderNotFound on a miss.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*models.OrderData, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant, customer_phone_number, transfers_phone_number,
			order_number, cart, subtotal, delivery_total, total, status, is_test, created_at
		FROM orders WHERE id = $1`, id)

	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		slog.Error("PostgresRepository GetOrder failed", "error", err, "id", id)
		return nil, err
	}
	return order, nil
}

// ListOrders returns all orders for a tenant, newest first.
func (r *PostgresRepository) ListOrders(ctx context.Context, tenant string) ([]models.OrderData, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant, customer_phone_number, transfers_phone_number,
			order_number, cart, subtotal, delivery_total, total, status, is_test, created_at
		FROM orders WHERE tenant = $1 ORDER BY created_at DESC`, tenant)
	if err != nil {
		slog.Error("PostgresRepository ListOrders failed", "error", err, "tenant", tenant)
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// UpdateOrderStatus mutates the only mutable order field.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if !models.IsValidOrderStatus(status) {
		return fmt.Errorf("invalid order status %q", status)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		slog.Error("PostgresRepository UpdateOrderStatus failed", "error", err, "id", id)
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Close releases the database handle.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
