package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const medicineColumns = `id, name, description, category, price, total_quantity,
	current_quantity, low_stock_threshold, expiry_date, is_active, created_at, updated_at`

func scanMedicine(row interface{ Scan(dest ...any) error }) (Medicine, error) {
	var m Medicine
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.Category,
		&m.Price,
		&m.TotalQuantity,
		&m.CurrentQuantity,
		&m.LowStockThreshold,
		&m.ExpiryDate,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

const createMedicineSQL = `
INSERT INTO medicines (name, description, category, price, total_quantity,
	current_quantity, low_stock_threshold, expiry_date)
VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
RETURNING ` + medicineColumns

type CreateMedicineParams struct {
	Name              string
	Description       pgtype.Text
	Category          string
	Price             pgtype.Numeric
	TotalQuantity     int32
	LowStockThreshold int32
	ExpiryDate        pgtype.Date
}

// CreateMedicine inserts a medicine with current_quantity = total_quantity.
func (q *Queries) CreateMedicine(ctx context.Context, arg CreateMedicineParams) (Medicine, error) {
	row := q.db.QueryRow(ctx, createMedicineSQL,
		arg.Name, arg.Description, arg.Category, arg.Price,
		arg.TotalQuantity, arg.LowStockThreshold, arg.ExpiryDate)
	return scanMedicine(row)
}

const getMedicineSQL = `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1 AND is_active = true`

func (q *Queries) GetMedicine(ctx context.Context, id uuid.UUID) (Medicine, error) {
	return scanMedicine(q.db.QueryRow(ctx, getMedicineSQL, id))
}

const listMedicinesSQL = `
SELECT ` + medicineColumns + `
FROM medicines
WHERE is_active = true
  AND ($1::text IS NULL OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
  AND ($2::text IS NULL OR category = $2)
  AND ($3::boolean IS NOT true OR current_quantity <= low_stock_threshold)
  AND ($4::numeric IS NULL OR price >= $4)
  AND ($5::numeric IS NULL OR price <= $5)
ORDER BY name
LIMIT $6 OFFSET $7`

type ListMedicinesParams struct {
	Search   pgtype.Text
	Category pgtype.Text
	LowStock pgtype.Bool
	MinPrice pgtype.Numeric
	MaxPrice pgtype.Numeric
	Limit    int32
	Offset   int32
}

func (q *Queries) ListMedicines(ctx context.Context, arg ListMedicinesParams) ([]Medicine, error) {
	rows, err := q.db.Query(ctx, listMedicinesSQL,
		arg.Search, arg.Category, arg.LowStock, arg.MinPrice, arg.MaxPrice,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var medicines []Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	return medicines, rows.Err()
}

const updateMedicineSQL = `
UPDATE medicines
SET name = $2, description = $3, category = $4, price = $5,
	total_quantity = $6, current_quantity = $7, low_stock_threshold = $8,
	expiry_date = $9, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + medicineColumns

type UpdateMedicineParams struct {
	ID                uuid.UUID
	Name              string
	Description       pgtype.Text
	Category          string
	Price             pgtype.Numeric
	TotalQuantity     int32
	CurrentQuantity   int32
	LowStockThreshold int32
	ExpiryDate        pgtype.Date
}

func (q *Queries) UpdateMedicine(ctx context.Context, arg UpdateMedicineParams) (Medicine, error) {
	row := q.db.QueryRow(ctx, updateMedicineSQL,
		arg.ID, arg.Name, arg.Description, arg.Category, arg.Price,
		arg.TotalQuantity, arg.CurrentQuantity, arg.LowStockThreshold, arg.ExpiryDate)
	return scanMedicine(row)
}

const softDeleteMedicineSQL = `
UPDATE medicines SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id`

func (q *Queries) SoftDeleteMedicine(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteMedicineSQL, id).Scan(&deleted)
	return deleted, err
}

const decrementMedicineStockSQL = `
UPDATE medicines
SET current_quantity = GREATEST(0, current_quantity - $2), updated_at = now()
WHERE id = $1
RETURNING current_quantity`

type DecrementMedicineStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementMedicineStock subtracts from current stock, clamped at zero.
func (q *Queries) DecrementMedicineStock(ctx context.Context, arg DecrementMedicineStockParams) (int32, error) {
	var remaining int32
	err := q.db.QueryRow(ctx, decrementMedicineStockSQL, arg.ID, arg.Quantity).Scan(&remaining)
	return remaining, err
}

const listLowStockMedicinesSQL = `
SELECT ` + medicineColumns + `
FROM medicines
WHERE is_active = true AND current_quantity <= low_stock_threshold
ORDER BY current_quantity ASC`

func (q *Queries) ListLowStockMedicines(ctx context.Context) ([]Medicine, error) {
	rows, err := q.db.Query(ctx, listLowStockMedicinesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var medicines []Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	return medicines, rows.Err()
}

const medicineStockStatsSQL = `
SELECT count(*), COALESCE(sum(current_quantity), 0)
FROM medicines
WHERE is_active = true`

type MedicineStockStatsRow struct {
	TotalMedicines int64
	UnitsInStock   int64
}

func (q *Queries) GetMedicineStockStats(ctx context.Context) (MedicineStockStatsRow, error) {
	var row MedicineStockStatsRow
	err := q.db.QueryRow(ctx, medicineStockStatsSQL).Scan(&row.TotalMedicines, &row.UnitsInStock)
	return row, err
}
