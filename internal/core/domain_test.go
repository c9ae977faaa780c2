package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2026-02-28" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("28/02/2026"); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"expenses": KindExpense, "Expense": KindExpense, "income": KindIncome} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("transfers"); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestRecordNormalizeDefaultsCategory(t *testing.T) {
	r := Record{Kind: KindExpense, Amount: decimal.RequireFromString("3.456"), Date: NewDate(2026, 1, 2), Description: "  coffee "}
	r.Normalize()
	if r.Category != Uncategorized {
		t.Fatalf("category = %q, want %q", r.Category, Uncategorized)
	}
	if r.Description != "coffee" {
		t.Fatalf("description = %q", r.Description)
	}
	if FormatAmount(r.Amount) != "3.46" {
		t.Fatalf("amount = %s", r.Amount)
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		Kind:        KindExpense,
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      decimal.NewFromInt(1),
		Category:    "Food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Record{
		{Kind: KindExpense, Date: Date{}, Description: "a", Amount: decimal.NewFromInt(1)},
		{Kind: KindExpense, Date: NewDate(2025, 1, 1), Description: "", Amount: decimal.NewFromInt(1)},
		{Kind: KindExpense, Date: NewDate(2025, 1, 1), Description: "a", Amount: decimal.Zero},
		{Kind: KindIncome, Date: NewDate(2025, 1, 1), Description: "a", Amount: decimal.NewFromInt(-5)},
		{Kind: "transfer", Date: NewDate(2025, 1, 1), Description: "a", Amount: decimal.NewFromInt(1)},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestRecordValidateMultiByteLengths(t *testing.T) {
	r := Record{
		Kind:        KindExpense,
		Date:        NewDate(2025, 1, 1),
		Description: strings.Repeat("€", MaxDescriptionLen),
		Amount:      decimal.NewFromInt(1),
		Category:    strings.Repeat("ß", MaxCategoryLen),
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected ok at the character limit, got %v", err)
	}

	r.Description += "€"
	if err := r.Validate(); !errors.Is(err, ErrDescriptionTooLong) {
		t.Errorf("Validate() = %v, want ErrDescriptionTooLong", err)
	}

	r.Description = "ok"
	r.Category += "ß"
	if err := r.Validate(); !errors.Is(err, ErrCategoryTooLong) {
		t.Errorf("Validate() = %v, want ErrCategoryTooLong", err)
	}
}

func TestLookupCurrency(t *testing.T) {
	c, ok := LookupCurrency(" eur ")
	if !ok || c.Code != "EUR" {
		t.Fatalf("LookupCurrency(eur) = %+v, %v", c, ok)
	}
	if _, ok := LookupCurrency("XXX"); ok {
		t.Error("XXX should not be selectable")
	}
}
