package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, user_id, status, payment_method, total_amount,
	delivery_address, reminder_days, is_reorder, original_order_id, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.PaymentMethod,
		&o.TotalAmount,
		&o.DeliveryAddress,
		&o.ReminderDays,
		&o.IsReorder,
		&o.OriginalOrderID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

const getNextOrderNumberSQL = `
SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS integer)), 0) + 1
FROM orders`

// GetNextOrderNumber returns the next sequential order number suffix.
// Concurrent callers can race; the unique constraint on order_number
// surfaces the conflict and the service retries.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, getNextOrderNumberSQL).Scan(&next)
	return next, err
}

const createOrderSQL = `
INSERT INTO orders (order_number, user_id, status, payment_method, total_amount,
	delivery_address, reminder_days, is_reorder, original_order_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber     string
	UserID          uuid.UUID
	Status          string
	PaymentMethod   string
	TotalAmount     pgtype.Numeric
	DeliveryAddress pgtype.Text
	ReminderDays    pgtype.Int4
	IsReorder       bool
	OriginalOrderID pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrderSQL,
		arg.OrderNumber, arg.UserID, arg.Status, arg.PaymentMethod, arg.TotalAmount,
		arg.DeliveryAddress, arg.ReminderDays, arg.IsReorder, arg.OriginalOrderID)
	return scanOrder(row)
}

const createOrderItemSQL = `
INSERT INTO order_items (order_id, medicine_id, medicine_name, unit_price, quantity, subtotal)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, medicine_id, medicine_name, unit_price, quantity, subtotal`

type CreateOrderItemParams struct {
	OrderID      uuid.UUID
	MedicineID   uuid.UUID
	MedicineName string
	UnitPrice    pgtype.Numeric
	Quantity     int32
	Subtotal     pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, createOrderItemSQL,
		arg.OrderID, arg.MedicineID, arg.MedicineName, arg.UnitPrice, arg.Quantity, arg.Subtotal).
		Scan(&it.ID, &it.OrderID, &it.MedicineID, &it.MedicineName, &it.UnitPrice, &it.Quantity, &it.Subtotal)
	return it, err
}

const getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

type GetOrderParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderSQL, arg.ID, arg.UserID))
}

const getOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`

// GetOrderForUpdate locks the order row for the duration of the transaction.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdateSQL, arg.ID, arg.UserID))
}

const listOrdersByUserSQL = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC`

func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listOrdersSQL = `
SELECT o.id, o.order_number, o.user_id, o.status, o.payment_method, o.total_amount,
	o.delivery_address, o.reminder_days, o.is_reorder, o.original_order_id,
	o.created_at, o.updated_at,
	u.full_name, u.email, u.mobile
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE ($1::text IS NULL OR o.status = $1)
ORDER BY o.created_at DESC
LIMIT $2 OFFSET $3`

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

type ListOrdersRow struct {
	Order
	UserName   string
	UserEmail  string
	UserMobile string
}

// ListOrders returns orders across all users with customer contact fields.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]ListOrdersRow, error) {
	rows, err := q.db.Query(ctx, listOrdersSQL, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListOrdersRow
	for rows.Next() {
		var r ListOrdersRow
		err := rows.Scan(
			&r.ID, &r.OrderNumber, &r.UserID, &r.Status, &r.PaymentMethod, &r.TotalAmount,
			&r.DeliveryAddress, &r.ReminderDays, &r.IsReorder, &r.OriginalOrderID,
			&r.CreatedAt, &r.UpdatedAt,
			&r.UserName, &r.UserEmail, &r.UserMobile,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const listOrderItemsByOrderSQL = `
SELECT id, order_id, medicine_id, medicine_name, unit_price, quantity, subtotal
FROM order_items
WHERE order_id = $1
ORDER BY medicine_name`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrderSQL, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.MedicineID, &it.MedicineName,
			&it.UnitPrice, &it.Quantity, &it.Subtotal)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatusSQL = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND user_id = $2 AND status = $4
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus performs a compare-and-set on the status column.
// Returns pgx.ErrNoRows when the current status no longer matches FromStatus.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatusSQL,
		arg.ID, arg.UserID, arg.Status, arg.FromStatus))
}

const createDeliveredOrderSQL = `
INSERT INTO delivered_orders (order_id, user_id, user_name, user_email, user_mobile,
	total_amount, delivery_address, payment_method, ordered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (order_id) DO NOTHING`

type CreateDeliveredOrderParams struct {
	OrderID         uuid.UUID
	UserID          uuid.UUID
	UserName        string
	UserEmail       string
	UserMobile      string
	TotalAmount     pgtype.Numeric
	DeliveryAddress pgtype.Text
	PaymentMethod   string
	OrderedAt       time.Time
}

// CreateDeliveredOrder records the flattened delivery copy at most once per order.
func (q *Queries) CreateDeliveredOrder(ctx context.Context, arg CreateDeliveredOrderParams) error {
	_, err := q.db.Exec(ctx, createDeliveredOrderSQL,
		arg.OrderID, arg.UserID, arg.UserName, arg.UserEmail, arg.UserMobile,
		arg.TotalAmount, arg.DeliveryAddress, arg.PaymentMethod, arg.OrderedAt)
	return err
}

const countDeliveredOrdersByOrderSQL = `SELECT count(*) FROM delivered_orders WHERE order_id = $1`

func (q *Queries) CountDeliveredOrdersByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countDeliveredOrdersByOrderSQL, orderID).Scan(&n)
	return n, err
}

const countOrdersSQL = `SELECT count(*) FROM orders`

func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersSQL).Scan(&n)
	return n, err
}
