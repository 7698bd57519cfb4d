package orders

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// scanOrderRow scans an OrderData from a single sql.Row.
func scanOrderRow(row *sql.Row) (*models.OrderData, error) {
	var o models.OrderData
	var cartJSON []byte
	err := row.Scan(
		&o.ID, &o.Tenant, &o.CustomerPhoneNumber, &o.TransfersPhoneNumber,
		&o.OrderNumber, &cartJSON, &o.Subtotal, &o.DeliveryTotal, &o.Total,
		&o.Status, &o.IsTest, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cartJSON, &o.Cart); err != nil {
		return nil, fmt.Errorf("decode cart for order %s: %w", o.ID, err)
	}
	return &o, nil
}

// collectOrders scans all OrderData rows from a result set.
func collectOrders(rows *sql.Rows) ([]models.OrderData, error) {
	var orders []models.OrderData
	for rows.Next() {
		var o models.OrderData
		var cartJSON []byte
		err := rows.Scan(
			&o.ID, &o.Tenant, &o.CustomerPhoneNumber, &o.TransfersPhoneNumber,
			&o.OrderNumber, &cartJSON, &o.Subtotal, &o.DeliveryTotal, &o.Total,
			&o.Status, &o.IsTest, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order failed: %w", err)
		}
		if err := json.Unmarshal(cartJSON, &o.Cart); err != nil {
			return nil, fmt.Errorf("decode cart for order %s: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
