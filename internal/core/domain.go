package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

const (
	MaxDescriptionLen = 255
	MaxCategoryLen    = 100
)

// Uncategorized is assigned to records saved without a category or source.
const Uncategorized = "Uncategorized"

const dateLayout = "2006-01-02"

type (
	// Kind distinguishes expenses from income entries.
	Kind string

	Date struct {
		time.Time
	}

	// Record is a single expense or income entry owned by one user.
	// Category holds the expense category or the income source.
	Record struct {
		ID          int64
		Kind        Kind
		Owner       int64
		Amount      decimal.Decimal
		Date        Date
		Category    string
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		Currency     string
		PasswordHash string
		CreatedAt    time.Time
	}

	// RecordQuery selects records for one owner and kind. Zero From/To
	// leave that side of the date range open; Limit <= 0 means no limit.
	RecordQuery struct {
		Owner  int64
		Kind   Kind
		From   Date
		To     Date
		Limit  int
		Offset int
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidKind        = errors.New("invalid record kind")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
	ErrCategoryTooLong    = errors.New("category too long (max 100 characters)")
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ParseKind maps path segments and form values to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "expenses":
		return KindExpense, nil
	case "income", "incomes":
		return KindIncome, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// Plural is used for URLs and export file names.
func (k Kind) Plural() string {
	if k == KindIncome {
		return "income"
	}
	return "expenses"
}

// GroupLabel names the classification column for this kind.
func (k Kind) GroupLabel() string {
	if k == KindIncome {
		return "Source"
	}
	return "Category"
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Normalize trims free-text fields and applies the category default.
func (r *Record) Normalize() {
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		r.Category = Uncategorized
	}
	r.Amount = r.Amount.Round(2)
}

func (r Record) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	// Limits count characters, not bytes.
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if utf8.RuneCountInString(r.Category) > MaxCategoryLen {
		return ErrCategoryTooLong
	}
	return nil
}
