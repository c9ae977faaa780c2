// Package report aggregates expense and income records into per-month and
// per-category summaries over a trailing window.
//
// Aggregation is pure and request-scoped: callers load the owner's records,
// build a Request and call Aggregate. Nothing is cached between requests.
package report

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

const (
	// DefaultWindowDays is the window used by the summary endpoints.
	DefaultWindowDays = 180
	// QuarterWindowDays backs the last-three-months view.
	QuarterWindowDays = 90
	// MaxWindowDays bounds user-supplied windows.
	MaxWindowDays = 3660

	DefaultTopN = 5

	// NoCategory is reported as the top category of an empty result.
	NoCategory = "None"
)

// Request scopes one aggregation run.
type Request struct {
	Owner      int64
	Kind       core.Kind
	Today      core.Date
	WindowDays int
	Mode       BucketMode
	TopN       int
}

// Bounds returns the inclusive window [today - days, today].
func (r Request) Bounds() (start, end core.Date) {
	days := r.WindowDays
	if days <= 0 {
		days = DefaultWindowDays
	}
	return daysBack(r.Today, days), r.Today
}

// Query returns the storage query that loads exactly the records the
// aggregation needs.
func (r Request) Query() core.RecordQuery {
	start, end := r.Bounds()
	return core.RecordQuery{Owner: r.Owner, Kind: r.Kind, From: start, To: end}
}

type Window struct {
	Start core.Date
	End   core.Date
	Days  int
}

func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Days  int    `json:"days"`
	}{w.Start.String(), w.End.String(), w.Days})
}

type Stats struct {
	Total             decimal.Decimal
	AverageMonthly    decimal.Decimal
	TransactionCount  int
	TopCategory       string
	TopCategoryAmount decimal.Decimal
	CategoriesCount   int
}

func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Total             float64 `json:"total"`
		AverageMonthly    float64 `json:"average_monthly"`
		TransactionCount  int     `json:"transaction_count"`
		TopCategory       string  `json:"top_category"`
		TopCategoryAmount float64 `json:"top_category_amount"`
		CategoriesCount   int     `json:"categories_count"`
	}{
		Total:             s.Total.InexactFloat64(),
		AverageMonthly:    s.AverageMonthly.InexactFloat64(),
		TransactionCount:  s.TransactionCount,
		TopCategory:       s.TopCategory,
		TopCategoryAmount: s.TopCategoryAmount.InexactFloat64(),
		CategoriesCount:   s.CategoriesCount,
	})
}

// Result is the output of one aggregation. Decimal sums are kept until the
// value is marshalled.
type Result struct {
	Kind             core.Kind   `json:"kind"`
	Window           Window      `json:"window"`
	MonthlyTotals    Accumulator `json:"monthly_totals"`
	CategoryTotals   Accumulator `json:"category_totals"`
	MonthlyBreakdown Breakdown   `json:"monthly_breakdown"`
	TopCategories    []Entry     `json:"top_categories"`
	Stats            Stats       `json:"stats"`
}

// Aggregate filters records to the request window and reduces them.
// Records of other owners or kinds are ignored. Records outside every bucket
// (possible only in legacy30 mode) still count toward the category totals
// and the overall total.
func Aggregate(req Request, records []core.Record) Result {
	start, end := req.Bounds()
	mode := req.Mode
	if mode == "" {
		mode = BucketCalendar
	}
	topN := req.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	res := Result{
		Kind:   req.Kind,
		Window: Window{Start: start, End: end, Days: int(end.Sub(start.Time).Hours() / 24)},
	}
	buckets := MonthBuckets(mode, start, end, res.Window.Days)
	for _, b := range buckets {
		res.MonthlyTotals.Ensure(b.Label)
		res.MonthlyBreakdown.Row(b.Label)
	}

	inWindow := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if req.Owner != 0 && rec.Owner != req.Owner {
			continue
		}
		if req.Kind != "" && rec.Kind != req.Kind {
			continue
		}
		if rec.Date.Before(start.Time) || rec.Date.After(end.Time) {
			continue
		}
		inWindow = append(inWindow, rec)
	}
	// Stable key order: oldest record first.
	sort.SliceStable(inWindow, func(i, j int) bool {
		if !inWindow[i].Date.Equal(inWindow[j].Date.Time) {
			return inWindow[i].Date.Before(inWindow[j].Date.Time)
		}
		return inWindow[i].ID < inWindow[j].ID
	})

	total := decimal.Zero
	for _, rec := range inWindow {
		category := rec.Category
		if category == "" {
			category = core.Uncategorized
		}
		total = total.Add(rec.Amount)
		res.CategoryTotals.Add(category, rec.Amount)
		if b, ok := bucketFor(buckets, rec.Date); ok {
			res.MonthlyTotals.Add(b.Label, rec.Amount)
			res.MonthlyBreakdown.Row(b.Label).Add(category, rec.Amount)
		}
	}

	nonEmpty := 0
	for _, e := range res.MonthlyTotals.Entries() {
		if !e.Amount.IsZero() {
			nonEmpty++
		}
	}

	res.Stats = Stats{
		Total:            total,
		AverageMonthly:   decimal.Zero,
		TransactionCount: len(inWindow),
		TopCategory:      NoCategory,
		CategoriesCount:  res.CategoryTotals.Len(),
	}
	if nonEmpty > 0 {
		res.Stats.AverageMonthly = total.Div(decimal.NewFromInt(int64(nonEmpty)))
	}
	if top, ok := res.CategoryTotals.Max(); ok {
		res.Stats.TopCategory = top.Name
		res.Stats.TopCategoryAmount = top.Amount
	}
	res.TopCategories = res.CategoryTotals.Ranked(topN)
	return res
}

func bucketFor(buckets []Bucket, d core.Date) (Bucket, bool) {
	for _, b := range buckets {
		if b.Contains(d) {
			return b, true
		}
	}
	return Bucket{}, false
}
