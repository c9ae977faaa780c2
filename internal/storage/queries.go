package storage

import (
	"context"
	"database/sql"
)

const recordColumns = `id, owner_id, kind, amount_cents, date, category, description, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var i Record
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Kind,
		&i.AmountCents,
		&i.Date,
		&i.Category,
		&i.Description,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var items []Record
	for rows.Next() {
		i, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRecord = `-- name: CreateRecord :one
INSERT INTO records (owner_id, kind, amount_cents, date, category, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + recordColumns

type CreateRecordParams struct {
	OwnerID     int64
	Kind        string
	AmountCents int64
	Date        string
	Category    string
	Description string
	CreatedAt   string
}

func (q *Queries) CreateRecord(ctx context.Context, arg CreateRecordParams) (Record, error) {
	row := q.db.QueryRowContext(ctx, createRecord,
		arg.OwnerID,
		arg.Kind,
		arg.AmountCents,
		arg.Date,
		arg.Category,
		arg.Description,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanRecord(row)
}

const updateRecord = `-- name: UpdateRecord :one
UPDATE records
SET amount_cents = ?, date = ?, category = ?, description = ?, updated_at = ?
WHERE id = ? AND owner_id = ? AND kind = ?
RETURNING ` + recordColumns

type UpdateRecordParams struct {
	AmountCents int64
	Date        string
	Category    string
	Description string
	UpdatedAt   string
	ID          int64
	OwnerID     int64
	Kind        string
}

func (q *Queries) UpdateRecord(ctx context.Context, arg UpdateRecordParams) (Record, error) {
	row := q.db.QueryRowContext(ctx, updateRecord,
		arg.AmountCents,
		arg.Date,
		arg.Category,
		arg.Description,
		arg.UpdatedAt,
		arg.ID,
		arg.OwnerID,
		arg.Kind,
	)
	return scanRecord(row)
}

const deleteRecord = `-- name: DeleteRecord :execrows
DELETE FROM records WHERE id = ? AND owner_id = ? AND kind = ?`

type DeleteRecordParams struct {
	ID      int64
	OwnerID int64
	Kind    string
}

func (q *Queries) DeleteRecord(ctx context.Context, arg DeleteRecordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecord, arg.ID, arg.OwnerID, arg.Kind)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getRecord = `-- name: GetRecord :one
SELECT ` + recordColumns + ` FROM records
WHERE id = ? AND owner_id = ? AND kind = ?`

type GetRecordParams struct {
	ID      int64
	OwnerID int64
	Kind    string
}

func (q *Queries) GetRecord(ctx context.Context, arg GetRecordParams) (Record, error) {
	row := q.db.QueryRowContext(ctx, getRecord, arg.ID, arg.OwnerID, arg.Kind)
	return scanRecord(row)
}

const listRecords = `-- name: ListRecords :many
SELECT ` + recordColumns + ` FROM records
WHERE owner_id = ? AND kind = ?
  AND (? = '' OR date >= ?)
  AND (? = '' OR date <= ?)
ORDER BY date DESC, id DESC
LIMIT ? OFFSET ?`

type ListRecordsParams struct {
	OwnerID  int64
	Kind     string
	FromDate string
	ToDate   string
	Limit    int64
	Offset   int64
}

// ListRecords treats an empty FromDate/ToDate as unbounded and a negative
// Limit as no limit.
func (q *Queries) ListRecords(ctx context.Context, arg ListRecordsParams) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, listRecords,
		arg.OwnerID,
		arg.Kind,
		arg.FromDate, arg.FromDate,
		arg.ToDate, arg.ToDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

const countRecords = `-- name: CountRecords :one
SELECT COUNT(*) FROM records WHERE owner_id = ? AND kind = ?`

func (q *Queries) CountRecords(ctx context.Context, ownerID int64, kind string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRecords, ownerID, kind)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const searchRecords = `-- name: SearchRecords :many
SELECT ` + recordColumns + ` FROM records
WHERE owner_id = ? AND kind = ?
  AND (
       printf('%.2f', amount_cents / 100.0) LIKE ? ESCAPE '\'
    OR date LIKE ? ESCAPE '\'
    OR description LIKE ? ESCAPE '\'
    OR category LIKE ? ESCAPE '\'
  )
ORDER BY date DESC, id DESC`

type SearchRecordsParams struct {
	OwnerID  int64
	Kind     string
	Prefix   string
	Contains string
}

func (q *Queries) SearchRecords(ctx context.Context, arg SearchRecordsParams) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, searchRecords,
		arg.OwnerID,
		arg.Kind,
		arg.Prefix,
		arg.Prefix,
		arg.Contains,
		arg.Contains,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, password_hash, currency, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, username, email, password_hash, currency, created_at`

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Currency     string
	CreatedAt    string
}

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.Currency,
		&i.CreatedAt,
	)
	return i, err
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.Email,
		arg.PasswordHash,
		arg.Currency,
		arg.CreatedAt,
	)
	return scanUser(row)
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT id, username, email, password_hash, currency, created_at FROM users
WHERE username = ? COLLATE NOCASE`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, username, email, password_hash, currency, created_at FROM users
WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const countUsersByUsername = `-- name: CountUsersByUsername :one
SELECT COUNT(*) FROM users WHERE username = ? COLLATE NOCASE`

func (q *Queries) CountUsersByUsername(ctx context.Context, username string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsersByUsername, username)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateUserCurrency = `-- name: UpdateUserCurrency :execrows
UPDATE users SET currency = ? WHERE id = ?`

func (q *Queries) UpdateUserCurrency(ctx context.Context, currency string, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserCurrency, currency, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCategories = `-- name: ListCategories :many
SELECT name FROM categories WHERE kind = ? ORDER BY position, name`

func (q *Queries) ListCategories(ctx context.Context, kind string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
