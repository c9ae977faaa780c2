package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Record struct {
	ID          int64
	OwnerID     int64
	Kind        string
	AmountCents int64
	Date        string
	Category    string
	Description string
	CreatedAt   string
	UpdatedAt   string
}

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Currency     string
	CreatedAt    string
}
