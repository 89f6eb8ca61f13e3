package database

import (
	"context"
	"time"
)

const createPasswordResetCodeSQL = `
INSERT INTO password_reset_codes (email, code, expires_at)
VALUES ($1, $2, $3)
RETURNING id, email, code, expires_at, created_at`

type CreatePasswordResetCodeParams struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

func (q *Queries) CreatePasswordResetCode(ctx context.Context, arg CreatePasswordResetCodeParams) (PasswordResetCode, error) {
	var c PasswordResetCode
	err := q.db.QueryRow(ctx, createPasswordResetCodeSQL, arg.Email, arg.Code, arg.ExpiresAt).
		Scan(&c.ID, &c.Email, &c.Code, &c.ExpiresAt, &c.CreatedAt)
	return c, err
}

const getPasswordResetCodeSQL = `
SELECT id, email, code, expires_at, created_at
FROM password_reset_codes
WHERE email = $1 AND code = $2
ORDER BY created_at DESC
LIMIT 1`

type GetPasswordResetCodeParams struct {
	Email string
	Code  string
}

func (q *Queries) GetPasswordResetCode(ctx context.Context, arg GetPasswordResetCodeParams) (PasswordResetCode, error) {
	var c PasswordResetCode
	err := q.db.QueryRow(ctx, getPasswordResetCodeSQL, arg.Email, arg.Code).
		Scan(&c.ID, &c.Email, &c.Code, &c.ExpiresAt, &c.CreatedAt)
	return c, err
}

const deletePasswordResetCodesSQL = `DELETE FROM password_reset_codes WHERE email = $1`

// DeletePasswordResetCodes removes all codes for an email. Called after a
// successful reset so codes are single-use.
func (q *Queries) DeletePasswordResetCodes(ctx context.Context, email string) error {
	_, err := q.db.Exec(ctx, deletePasswordResetCodesSQL, email)
	return err
}

const deleteExpiredPasswordResetCodesSQL = `DELETE FROM password_reset_codes WHERE expires_at < now()`

func (q *Queries) DeleteExpiredPasswordResetCodes(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteExpiredPasswordResetCodesSQL)
	return err
}
