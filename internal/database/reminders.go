package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const reminderColumns = `id, user_id, order_id, medicine_id, medicine_name, quantity,
	reminder_days, ordered_at, due_at, notified, created_at`

func scanReminder(row interface{ Scan(dest ...any) error }) (Reminder, error) {
	var r Reminder
	err := row.Scan(&r.ID, &r.UserID, &r.OrderID, &r.MedicineID, &r.MedicineName,
		&r.Quantity, &r.ReminderDays, &r.OrderedAt, &r.DueAt, &r.Notified, &r.CreatedAt)
	return r, err
}

const createReminderSQL = `
INSERT INTO reminders (user_id, order_id, medicine_id, medicine_name, quantity,
	reminder_days, ordered_at, due_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + reminderColumns

type CreateReminderParams struct {
	UserID       uuid.UUID
	OrderID      pgtype.UUID
	MedicineID   uuid.UUID
	MedicineName string
	Quantity     int32
	ReminderDays int32
	OrderedAt    time.Time
	DueAt        time.Time
}

func (q *Queries) CreateReminder(ctx context.Context, arg CreateReminderParams) (Reminder, error) {
	row := q.db.QueryRow(ctx, createReminderSQL,
		arg.UserID, arg.OrderID, arg.MedicineID, arg.MedicineName, arg.Quantity,
		arg.ReminderDays, arg.OrderedAt, arg.DueAt)
	return scanReminder(row)
}

const listRemindersByUserSQL = `
SELECT ` + reminderColumns + `
FROM reminders
WHERE user_id = $1
  AND ($2::timestamptz IS NULL OR due_at >= $2)
ORDER BY due_at ASC`

type ListRemindersByUserParams struct {
	UserID  uuid.UUID
	DueFrom pgtype.Timestamptz
}

func (q *Queries) ListRemindersByUser(ctx context.Context, arg ListRemindersByUserParams) ([]Reminder, error) {
	rows, err := q.db.Query(ctx, listRemindersByUserSQL, arg.UserID, arg.DueFrom)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

const deleteReminderSQL = `
DELETE FROM reminders WHERE id = $1 AND user_id = $2 RETURNING id`

type DeleteReminderParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) DeleteReminder(ctx context.Context, arg DeleteReminderParams) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteReminderSQL, arg.ID, arg.UserID).Scan(&deleted)
	return deleted, err
}

const listRemindersDueSQL = `
SELECT r.id, r.user_id, r.order_id, r.medicine_id, r.medicine_name, r.quantity,
	r.reminder_days, r.ordered_at, r.due_at, r.notified, r.created_at,
	u.full_name, u.email
FROM reminders r
JOIN users u ON u.id = r.user_id
WHERE r.due_at >= $1 AND r.due_at < $2
ORDER BY r.due_at ASC`

type ListRemindersDueParams struct {
	From time.Time
	To   time.Time
}

type ListRemindersDueRow struct {
	Reminder
	UserName  string
	UserEmail string
}

// ListRemindersDue returns reminders with due dates inside [From, To),
// joined with customer contact fields for the admin alert view.
func (q *Queries) ListRemindersDue(ctx context.Context, arg ListRemindersDueParams) ([]ListRemindersDueRow, error) {
	rows, err := q.db.Query(ctx, listRemindersDueSQL, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListRemindersDueRow
	for rows.Next() {
		var r ListRemindersDueRow
		err := rows.Scan(&r.ID, &r.UserID, &r.OrderID, &r.MedicineID, &r.MedicineName,
			&r.Quantity, &r.ReminderDays, &r.OrderedAt, &r.DueAt, &r.Notified, &r.CreatedAt,
			&r.UserName, &r.UserEmail)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const markReminderNotifiedSQL = `UPDATE reminders SET notified = true WHERE id = $1`

func (q *Queries) MarkReminderNotified(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, markReminderNotifiedSQL, id)
	return err
}
