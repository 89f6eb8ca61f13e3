package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, full_name, email, mobile, hashed_password, role, reorder_count, created_at, last_login_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.Mobile,
		&u.HashedPassword,
		&u.Role,
		&u.ReorderCount,
		&u.CreatedAt,
		&u.LastLoginAt,
	)
	return u, err
}

const createUserSQL = `
INSERT INTO users (full_name, email, mobile, hashed_password, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	FullName       string
	Email          string
	Mobile         string
	HashedPassword string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUserSQL,
		arg.FullName, arg.Email, arg.Mobile, arg.HashedPassword, arg.Role)
	return scanUser(row)
}

const getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmailSQL, email))
}

const getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByIDSQL, id))
}

const listUsersSQL = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const listUsersWithCountsSQL = `
SELECT ` + userColumns + `,
	(SELECT count(*) FROM orders o WHERE o.user_id = users.id),
	(SELECT count(*) FROM notifications n WHERE n.user_id = users.id)
FROM users
ORDER BY created_at DESC`

type ListUsersWithCountsRow struct {
	User
	OrderCount        int64
	NotificationCount int64
}

// ListUsersWithCounts returns all users with per-user order and
// notification counts for the admin list view.
func (q *Queries) ListUsersWithCounts(ctx context.Context) ([]ListUsersWithCountsRow, error) {
	rows, err := q.db.Query(ctx, listUsersWithCountsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListUsersWithCountsRow
	for rows.Next() {
		var r ListUsersWithCountsRow
		err := rows.Scan(
			&r.ID,
			&r.FullName,
			&r.Email,
			&r.Mobile,
			&r.HashedPassword,
			&r.Role,
			&r.ReorderCount,
			&r.CreatedAt,
			&r.LastLoginAt,
			&r.OrderCount,
			&r.NotificationCount,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const touchLastLoginSQL = `UPDATE users SET last_login_at = now() WHERE id = $1`

func (q *Queries) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchLastLoginSQL, id)
	return err
}

const updateUserPasswordSQL = `UPDATE users SET hashed_password = $2 WHERE id = $1`

type UpdateUserPasswordParams struct {
	ID             uuid.UUID
	HashedPassword string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.Exec(ctx, updateUserPasswordSQL, arg.ID, arg.HashedPassword)
	return err
}

const updateUserPasswordByEmailSQL = `UPDATE users SET hashed_password = $2 WHERE email = $1 RETURNING id`

type UpdateUserPasswordByEmailParams struct {
	Email          string
	HashedPassword string
}

func (q *Queries) UpdateUserPasswordByEmail(ctx context.Context, arg UpdateUserPasswordByEmailParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, updateUserPasswordByEmailSQL, arg.Email, arg.HashedPassword).Scan(&id)
	return id, err
}

const incrementReorderCountSQL = `UPDATE users SET reorder_count = reorder_count + 1 WHERE id = $1`

func (q *Queries) IncrementReorderCount(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, incrementReorderCountSQL, id)
	return err
}

const countUsersSQL = `SELECT count(*) FROM users WHERE role = 'CUSTOMER'`

func (q *Queries) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsersSQL).Scan(&n)
	return n, err
}

const countActiveCustomersSQL = `
SELECT count(DISTINCT o.user_id)
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE u.role = 'CUSTOMER'`

// CountActiveCustomers counts customers with at least one order.
func (q *Queries) CountActiveCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countActiveCustomersSQL).Scan(&n)
	return n, err
}
