package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations on their own connection before the pool is opened.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

// CreateRecord implements ports.RecordStore
func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	row, err := r.queries.CreateRecord(ctx, CreateRecordParams{
		OwnerID:     rec.Owner,
		Kind:        string(rec.Kind),
		AmountCents: core.ToCents(rec.Amount),
		Date:        rec.Date.String(),
		Category:    rec.Category,
		Description: rec.Description,
		CreatedAt:   r.stamp(),
	})
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite",
		"id", row.ID,
		"kind", row.Kind,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return recordFromRow(row)
}

// UpdateRecord implements ports.RecordStore
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	row, err := r.queries.UpdateRecord(ctx, UpdateRecordParams{
		AmountCents: core.ToCents(rec.Amount),
		Date:        rec.Date.String(),
		Category:    rec.Category,
		Description: rec.Description,
		UpdatedAt:   r.stamp(),
		ID:          rec.ID,
		OwnerID:     rec.Owner,
		Kind:        string(rec.Kind),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("update record %d: %w", rec.ID, err)
	}
	return recordFromRow(row)
}

// DeleteRecord implements ports.RecordStore
func (r *SQLiteRepository) DeleteRecord(ctx context.Context, owner int64, kind core.Kind, id int64) error {
	n, err := r.queries.DeleteRecord(ctx, DeleteRecordParams{ID: id, OwnerID: owner, Kind: string(kind)})
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// GetRecord implements ports.RecordStore
func (r *SQLiteRepository) GetRecord(ctx context.Context, owner int64, kind core.Kind, id int64) (core.Record, error) {
	row, err := r.queries.GetRecord(ctx, GetRecordParams{ID: id, OwnerID: owner, Kind: string(kind)})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return recordFromRow(row)
}

// ListRecords implements ports.RecordStore
func (r *SQLiteRepository) ListRecords(ctx context.Context, q core.RecordQuery) ([]core.Record, error) {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.queries.ListRecords(ctx, ListRecordsParams{
		OwnerID:  q.Owner,
		Kind:     string(q.Kind),
		FromDate: q.From.String(),
		ToDate:   q.To.String(),
		Limit:    limit,
		Offset:   int64(q.Offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recordsFromRows(rows)
}

// CountRecords implements ports.RecordStore
func (r *SQLiteRepository) CountRecords(ctx context.Context, owner int64, kind core.Kind) (int, error) {
	n, err := r.queries.CountRecords(ctx, owner, string(kind))
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return int(n), nil
}

// SearchRecords implements ports.RecordStore
func (r *SQLiteRepository) SearchRecords(ctx context.Context, owner int64, kind core.Kind, text string) ([]core.Record, error) {
	esc := escapeLike(strings.TrimSpace(text))
	rows, err := r.queries.SearchRecords(ctx, SearchRecordsParams{
		OwnerID:  owner,
		Kind:     string(kind),
		Prefix:   esc + "%",
		Contains: "%" + esc + "%",
	})
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return recordsFromRows(rows)
}

// CreateUser implements ports.UserStore
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Currency:     u.Currency,
		CreatedAt:    r.stamp(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", row.ID, "username", row.Username)
	return userFromRow(row)
}

// UserByUsername implements ports.UserStore
func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	row, err := r.queries.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return userFromRow(row)
}

// UserByID implements ports.UserStore
func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return userFromRow(row)
}

// UsernameExists implements ports.UserStore
func (r *SQLiteRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := r.queries.CountUsersByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// UpdateCurrency implements ports.UserStore
func (r *SQLiteRepository) UpdateCurrency(ctx context.Context, id int64, currency string) error {
	n, err := r.queries.UpdateUserCurrency(ctx, currency, id)
	if err != nil {
		return fmt.Errorf("update currency: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListCategories implements ports.TaxonomyReader
func (r *SQLiteRepository) ListCategories(ctx context.Context, kind core.Kind) ([]string, error) {
	names, err := r.queries.ListCategories(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories for %s: %w", kind, err)
	}
	return names, nil
}

func recordFromRow(row Record) (core.Record, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Record{}, fmt.Errorf("record %d has bad date %q: %w", row.ID, row.Date, err)
	}
	created, _ := time.Parse(timeLayout, row.CreatedAt)
	updated, _ := time.Parse(timeLayout, row.UpdatedAt)
	return core.Record{
		ID:          row.ID,
		Kind:        core.Kind(row.Kind),
		Owner:       row.OwnerID,
		Amount:      core.FromCents(row.AmountCents),
		Date:        date,
		Category:    row.Category,
		Description: row.Description,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

func recordsFromRows(rows []Record) ([]core.Record, error) {
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func userFromRow(row User) (core.User, error) {
	created, _ := time.Parse(timeLayout, row.CreatedAt)
	return core.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		Currency:     row.Currency,
		PasswordHash: row.PasswordHash,
		CreatedAt:    created,
	}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike escapes LIKE wildcards; queries use '\' as the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
