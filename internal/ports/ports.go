package ports

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordStore persists expense and income records. Every call is scoped
	// to an owner; a record belonging to someone else is core.ErrNotFound.
	RecordStore interface {
		CreateRecord(ctx context.Context, r core.Record) (core.Record, error)
		UpdateRecord(ctx context.Context, r core.Record) (core.Record, error)
		DeleteRecord(ctx context.Context, owner int64, kind core.Kind, id int64) error
		GetRecord(ctx context.Context, owner int64, kind core.Kind, id int64) (core.Record, error)
		// ListRecords returns matching records newest first.
		ListRecords(ctx context.Context, q core.RecordQuery) ([]core.Record, error)
		CountRecords(ctx context.Context, owner int64, kind core.Kind) (int, error)
		// SearchRecords matches an amount or date prefix, or a description or
		// category substring, case-insensitively.
		SearchRecords(ctx context.Context, owner int64, kind core.Kind, text string) ([]core.Record, error)
	}

	UserStore interface {
		// CreateUser returns core.ErrUsernameTaken for a duplicate username.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		UserByUsername(ctx context.Context, username string) (core.User, error)
		UserByID(ctx context.Context, id int64) (core.User, error)
		UsernameExists(ctx context.Context, username string) (bool, error)
		UpdateCurrency(ctx context.Context, id int64, currency string) error
	}

	// TaxonomyReader lists the categories (expenses) or sources (income)
	// offered in record forms.
	TaxonomyReader interface {
		ListCategories(ctx context.Context, kind core.Kind) ([]string, error)
	}

	// Store is everything the web application needs from a backend.
	Store interface {
		RecordStore
		UserStore
		TaxonomyReader
		Ping(ctx context.Context) error
	}
)
