package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/chatea-chevere/orderbot/internal/models"
	"github.com/chatea-chevere/orderbot/internal/util"
)

// ErrOrderNotFound is returned when no order exists for the requested id.
var ErrOrderNotFound = errors.New("order not found")

// Repository is the order persistence contract. StoreOrder returns the
// assigned id. GetOrder backs the resend-to-transfers redirect; ListOrders
// and UpdateOrderStatus serve the admin dashboard collaborator.
type Repository interface {
	StoreOrder(ctx context.Context, order models.OrderData) (string, error)
	GetOrder(ctx context.Context, id string) (*models.OrderData, error)
	ListOrders(ctx context.Context, tenant string) ([]models.OrderData, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
}

// Opts holds configuration options for repository backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for repository backends.
type Option func(*Opts)

// WithDSN sets the database connection string (Postgres URL or SQLite path).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3". Postgres DSNs
// carry a URL scheme or key=value connection parameters; everything else is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// NewRepository opens the repository backend the DSN implies. An empty DSN
// yields the in-memory repository, which loses orders on restart.
func NewRepository(opts ...Option) (Repository, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return NewInMemoryRepository(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresRepository(opts...)
	}
	return NewSQLiteRepository(opts...)
}

// newOrderID generates a store id with the "ord_" prefix.
func newOrderID() string {
	return "ord_" + util.GenerateRandomAlphaNumeric(20)
}
