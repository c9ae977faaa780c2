package report

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Health thresholds on the savings rate, in percent.
var (
	excellentRate = decimal.NewFromInt(20)
	goodRate      = decimal.NewFromInt(10)
)

type HealthIndicators struct {
	TotalIncome        decimal.Decimal
	TotalExpenses      decimal.Decimal
	TotalSavings       decimal.Decimal
	SavingsRate        decimal.Decimal
	AvgMonthlyIncome   decimal.Decimal
	AvgMonthlyExpenses decimal.Decimal
	HealthStatus       string
	HealthColor        string
}

func (h HealthIndicators) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalIncome        float64 `json:"total_income"`
		TotalExpenses      float64 `json:"total_expenses"`
		TotalSavings       float64 `json:"total_savings"`
		SavingsRate        float64 `json:"savings_rate"`
		AvgMonthlyIncome   float64 `json:"avg_monthly_income"`
		AvgMonthlyExpenses float64 `json:"avg_monthly_expenses"`
		HealthStatus       string  `json:"health_status"`
		HealthColor        string  `json:"health_color"`
	}{
		TotalIncome:        h.TotalIncome.InexactFloat64(),
		TotalExpenses:      h.TotalExpenses.InexactFloat64(),
		TotalSavings:       h.TotalSavings.InexactFloat64(),
		SavingsRate:        h.SavingsRate.InexactFloat64(),
		AvgMonthlyIncome:   h.AvgMonthlyIncome.Round(2).InexactFloat64(),
		AvgMonthlyExpenses: h.AvgMonthlyExpenses.Round(2).InexactFloat64(),
		HealthStatus:       h.HealthStatus,
		HealthColor:        h.HealthColor,
	})
}

// Overview compares income against expenses over the same window.
type Overview struct {
	Window          Window           `json:"window"`
	MonthlyIncome   Accumulator      `json:"monthly_income"`
	MonthlyExpenses Accumulator      `json:"monthly_expenses"`
	MonthlySavings  Accumulator      `json:"monthly_savings"`
	Health          HealthIndicators `json:"health_indicators"`
}

// BuildOverview combines an income and an expense aggregation computed with
// the same window and bucket mode.
func BuildOverview(income, expenses Result) Overview {
	ov := Overview{
		Window:          expenses.Window,
		MonthlyIncome:   income.MonthlyTotals,
		MonthlyExpenses: expenses.MonthlyTotals,
	}

	for _, label := range expenses.MonthlyTotals.Keys() {
		ov.MonthlySavings.Ensure(label)
	}
	for _, label := range income.MonthlyTotals.Keys() {
		ov.MonthlySavings.Ensure(label)
	}
	for _, label := range ov.MonthlySavings.Keys() {
		ov.MonthlySavings.Add(label, income.MonthlyTotals.Get(label).Sub(expenses.MonthlyTotals.Get(label)))
	}

	h := HealthIndicators{
		TotalIncome:        income.Stats.Total,
		TotalExpenses:      expenses.Stats.Total,
		TotalSavings:       income.Stats.Total.Sub(expenses.Stats.Total),
		SavingsRate:        decimal.Zero,
		AvgMonthlyIncome:   income.Stats.AverageMonthly,
		AvgMonthlyExpenses: expenses.Stats.AverageMonthly,
	}
	if h.TotalIncome.IsPositive() {
		h.SavingsRate = h.TotalSavings.Div(h.TotalIncome).Mul(decimal.NewFromInt(100)).Round(1)
	}
	h.HealthStatus, h.HealthColor = healthOf(h.SavingsRate)
	ov.Health = h
	return ov
}

func healthOf(rate decimal.Decimal) (status, color string) {
	switch {
	case rate.GreaterThanOrEqual(excellentRate):
		return "Excellent", "success"
	case rate.GreaterThanOrEqual(goodRate):
		return "Good", "info"
	case !rate.IsNegative():
		return "Fair", "warning"
	default:
		return "Poor", "danger"
	}
}
