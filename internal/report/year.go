package report

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// YearSummary holds per-calendar-month totals for one year.
type YearSummary struct {
	Year   int
	Months [12]decimal.Decimal
}

// YearQuery returns the storage query covering the whole year.
func YearQuery(owner int64, kind core.Kind, year int) core.RecordQuery {
	return core.RecordQuery{
		Owner: owner,
		Kind:  kind,
		From:  core.NewDate(year, 1, 1),
		To:    core.NewDate(year, 12, 31),
	}
}

// SummarizeYear sums records falling in year by calendar month.
func SummarizeYear(year int, records []core.Record) YearSummary {
	ys := YearSummary{Year: year}
	for i := range ys.Months {
		ys.Months[i] = decimal.Zero
	}
	for _, rec := range records {
		if rec.Date.Year() != year {
			continue
		}
		m := int(rec.Date.Month()) - 1
		ys.Months[m] = ys.Months[m].Add(rec.Amount)
	}
	return ys
}

func (y YearSummary) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range y.Months {
		total = total.Add(v)
	}
	return total
}

// TopMonth returns the 1-based month with the highest total; 0 when the year
// has no records. Earlier months win ties.
func (y YearSummary) TopMonth() (int, decimal.Decimal) {
	best, amount := 0, decimal.Zero
	for i, v := range y.Months {
		if v.GreaterThan(amount) {
			best, amount = i+1, v
		}
	}
	return best, amount
}

func (y YearSummary) MarshalJSON() ([]byte, error) {
	var months bytes.Buffer
	months.WriteByte('{')
	for i, v := range y.Months {
		if i > 0 {
			months.WriteByte(',')
		}
		months.WriteString(strconv.Quote(strconv.Itoa(i + 1)))
		months.WriteByte(':')
		months.WriteString(strconv.FormatFloat(v.InexactFloat64(), 'f', -1, 64))
	}
	months.WriteByte('}')

	month, amount := y.TopMonth()
	return json.Marshal(struct {
		Year     int             `json:"year"`
		Months   json.RawMessage `json:"months"`
		Total    float64         `json:"total"`
		TopMonth struct {
			Month  int     `json:"month"`
			Amount float64 `json:"amount"`
		} `json:"top_month"`
	}{
		Year:   y.Year,
		Months: months.Bytes(),
		Total:  y.Total().InexactFloat64(),
		TopMonth: struct {
			Month  int     `json:"month"`
			Amount float64 `json:"amount"`
		}{month, amount.InexactFloat64()},
	})
}
