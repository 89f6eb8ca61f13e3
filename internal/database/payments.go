package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, user_name, user_email, amount, method, created_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.UserName, &p.UserEmail, &p.Amount, &p.Method, &p.CreatedAt)
	return p, err
}

const createPaymentSQL = `
INSERT INTO payments (order_id, user_name, user_email, amount, method)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID   uuid.UUID
	UserName  string
	UserEmail string
	Amount    pgtype.Numeric
	Method    string
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPaymentSQL,
		arg.OrderID, arg.UserName, arg.UserEmail, arg.Amount, arg.Method)
	return scanPayment(row)
}

const listPaymentsSQL = `
SELECT ` + paymentColumns + `
FROM payments
WHERE ($1::timestamptz IS NULL OR created_at >= $1)
  AND ($2::timestamptz IS NULL OR created_at < $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListPaymentsParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsSQL, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const paymentTotalsSQL = `
SELECT count(*), COALESCE(sum(amount), 0)
FROM payments`

type PaymentTotalsRow struct {
	PaymentCount int64
	TotalRevenue pgtype.Numeric
}

// GetPaymentTotals sums the whole payment log for dashboard revenue.
func (q *Queries) GetPaymentTotals(ctx context.Context) (PaymentTotalsRow, error) {
	var row PaymentTotalsRow
	err := q.db.QueryRow(ctx, paymentTotalsSQL).Scan(&row.PaymentCount, &row.TotalRevenue)
	return row, err
}

const listPaymentsSinceSQL = `
SELECT ` + paymentColumns + `
FROM payments
WHERE created_at >= $1
ORDER BY created_at DESC
LIMIT $2`

type ListPaymentsSinceParams struct {
	Since pgtype.Timestamptz
	Limit int32
}

func (q *Queries) ListPaymentsSince(ctx context.Context, arg ListPaymentsSinceParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsSinceSQL, arg.Since, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
