package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const notificationColumns = `id, user_id, title, message, type, order_id, has_reorder_action, read, created_at`

func scanNotification(row interface{ Scan(dest ...any) error }) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
		&n.OrderID, &n.HasReorderAction, &n.Read, &n.CreatedAt)
	return n, err
}

const createNotificationSQL = `
INSERT INTO notifications (user_id, title, message, type, order_id, has_reorder_action)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + notificationColumns

type CreateNotificationParams struct {
	UserID           uuid.UUID
	Title            string
	Message          string
	Type             string
	OrderID          pgtype.UUID
	HasReorderAction bool
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, createNotificationSQL,
		arg.UserID, arg.Title, arg.Message, arg.Type, arg.OrderID, arg.HasReorderAction)
	return scanNotification(row)
}

const listNotificationsByUserSQL = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC`

func (q *Queries) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotificationsByUserSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

const countUnreadNotificationsSQL = `
SELECT count(*) FROM notifications WHERE user_id = $1 AND read = false`

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUnreadNotificationsSQL, userID).Scan(&n)
	return n, err
}

const markNotificationReadSQL = `
UPDATE notifications SET read = true
WHERE id = $1 AND user_id = $2
RETURNING ` + notificationColumns

type MarkNotificationReadParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, markNotificationReadSQL, arg.ID, arg.UserID))
}

const markAllNotificationsReadSQL = `
UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, markAllNotificationsReadSQL, userID)
	return err
}

const deleteNotificationSQL = `
DELETE FROM notifications WHERE id = $1 AND user_id = $2 RETURNING id`

type DeleteNotificationParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) DeleteNotification(ctx context.Context, arg DeleteNotificationParams) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteNotificationSQL, arg.ID, arg.UserID).Scan(&deleted)
	return deleted, err
}

const clearNotificationsSQL = `DELETE FROM notifications WHERE user_id = $1`

func (q *Queries) ClearNotifications(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearNotificationsSQL, userID)
	return err
}

const countNotificationsByUserSQL = `SELECT count(*) FROM notifications WHERE user_id = $1`

func (q *Queries) CountNotificationsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countNotificationsByUserSQL, userID).Scan(&n)
	return n, err
}
