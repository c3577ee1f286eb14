package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/answerline/answerline/pkg/voice"
)

type Order struct {
	ID                  int64     `json:"id"`
	CallSID             string    `json:"call_sid"`
	OrganizationID      int64     `json:"organization_id"`
	CallerPhone         string    `json:"caller_phone"`
	CustomerName        string    `json:"customer_name"`
	Items               string    `json:"items"`
	OrderType           string    `json:"order_type"`
	DeliveryAddress     string    `json:"delivery_address"`
	PickupName          string    `json:"pickup_name"`
	PhoneNumber         string    `json:"phone_number"`
	SpecialInstructions string    `json:"special_instructions"`
	PaymentMethod       string    `json:"payment_method"`
	TotalEstimate       string    `json:"total_estimate"`
	OrderStatus         string    `json:"order_status"`
	CreatedAt           time.Time `json:"created_at"`
}

const orderColumns = `id, call_sid, COALESCE(organization_id, 0), caller_phone,
	COALESCE(customer_name, ''), COALESCE(items, ''), COALESCE(order_type, ''),
	COALESCE(delivery_address, ''), COALESCE(pickup_name, ''), COALESCE(phone_number, ''),
	COALESCE(special_instructions, ''), COALESCE(payment_method, ''), COALESCE(total_estimate, ''),
	order_status, created_at`

// CreateOrder inserts a new order row and returns its id.
func (db *DB) CreateOrder(ctx context.Context, callSID, callerPhone string, orgID int64, f voice.OrderFields) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `
		INSERT INTO orders (call_sid, organization_id, caller_phone, customer_name, items,
			order_type, delivery_address, pickup_name, phone_number,
			special_instructions, payment_method, total_estimate)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		callSID, orgID, callerPhone, f.CustomerName, f.Items,
		f.OrderType, f.DeliveryAddress, f.PickupName, f.PhoneNumber,
		f.SpecialInstructions, f.PaymentMethod, f.TotalEstimate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return id, nil
}

// UpdateOrderFields overwrites the extracted fields of an existing order.
func (db *DB) UpdateOrderFields(ctx context.Context, orderID int64, f voice.OrderFields) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE orders
		SET customer_name = $2, items = $3, order_type = $4, delivery_address = $5,
		    pickup_name = $6, phone_number = $7, special_instructions = $8,
		    payment_method = $9, total_estimate = $10, updated_at = now()
		WHERE id = $1`,
		orderID, f.CustomerName, f.Items, f.OrderType, f.DeliveryAddress,
		f.PickupName, f.PhoneNumber, f.SpecialInstructions, f.PaymentMethod, f.TotalEstimate)
	if err != nil {
		return fmt.Errorf("update order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order %d: %w", orderID, ErrNotFound)
	}
	return nil
}

// Orders lists an organization's orders, optionally filtered by status,
// type, or a free-text search over items and names.
func (db *DB) Orders(ctx context.Context, orgID int64, status, orderType, search string, limit int) ([]Order, error) {
	if limit <= 0 || limit > 10000 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE organization_id = $1
		  AND ($2 = '' OR order_status = $2)
		  AND ($3 = '' OR order_type = $3)
		  AND ($4 = '' OR items ILIKE '%' || $4 || '%'
		       OR customer_name ILIKE '%' || $4 || '%'
		       OR pickup_name ILIKE '%' || $4 || '%'
		       OR caller_phone ILIKE '%' || $4 || '%')
		ORDER BY created_at DESC
		LIMIT $5`,
		orgID, status, orderType, search, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (db *DB) Order(ctx context.Context, orgID, orderID int64) (*Order, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND organization_id = $2`,
		orderID, orgID)

	var o Order
	if err := scanOrder(row, &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (db *DB) UpdateOrderStatus(ctx context.Context, orgID, orderID int64, status string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE orders SET order_status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2`,
		orderID, orgID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type OrderStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Today     int `json:"today"`
}

func (db *DB) OrderStatistics(ctx context.Context, orgID int64) (OrderStats, error) {
	var s OrderStats
	err := db.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE order_status = 'pending'),
		       COUNT(*) FILTER (WHERE order_status = 'completed'),
		       COUNT(*) FILTER (WHERE created_at >= date_trunc('day', now()))
		FROM orders WHERE organization_id = $1`,
		orgID).Scan(&s.Total, &s.Pending, &s.Completed, &s.Today)
	if err != nil {
		return OrderStats{}, fmt.Errorf("order statistics: %w", err)
	}
	return s, nil
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	orders := make([]Order, 0, 16)
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.CallSID, &o.OrganizationID, &o.CallerPhone,
		&o.CustomerName, &o.Items, &o.OrderType, &o.DeliveryAddress, &o.PickupName,
		&o.PhoneNumber, &o.SpecialInstructions, &o.PaymentMethod, &o.TotalEstimate,
		&o.OrderStatus, &o.CreatedAt)
}
