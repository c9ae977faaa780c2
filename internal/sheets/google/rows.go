package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Columns: ID, Date, Amount, Category/Source, Description, Owner.
const lastColumn = "F"

func headerRow(kind core.Kind) []any {
	return []any{"ID", "Date", "Amount", kind.GroupLabel(), "Description", "Owner"}
}

func recordRow(r core.Record) []any {
	amount, _ := r.Amount.Float64()
	return []any{r.ID, r.Date.String(), amount, r.Category, r.Description, r.Owner}
}

// findRow returns the 1-based row whose first cell is id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// parseRow is best-effort: header, cleared and malformed rows are skipped.
func parseRow(cols []string, kind core.Kind) (core.Record, bool) {
	if len(cols) < 5 {
		return core.Record{}, false
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil || id <= 0 {
		return core.Record{}, false
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Record{}, false
	}
	amount, ok := parseAmount(cols[2])
	if !ok {
		return core.Record{}, false
	}
	r := core.Record{
		ID:          id,
		Kind:        kind,
		Amount:      amount,
		Date:        date,
		Category:    cols[3],
		Description: cols[4],
	}
	if len(cols) > 5 {
		r.Owner, _ = strconv.ParseInt(cols[5], 10, 64)
	}
	return r, true
}

// parseAmount accepts both decimal separators, as sheets render them per locale.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
