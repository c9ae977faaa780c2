package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func TestHealthOf(t *testing.T) {
	cases := []struct {
		rate   string
		status string
		color  string
	}{
		{"35", "Excellent", "success"},
		{"20", "Excellent", "success"},
		{"19.9", "Good", "info"},
		{"10", "Good", "info"},
		{"0", "Fair", "warning"},
		{"-0.1", "Poor", "danger"},
	}
	for _, tc := range cases {
		status, color := healthOf(decimal.RequireFromString(tc.rate))
		require.Equal(t, tc.status, status, tc.rate)
		require.Equal(t, tc.color, color, tc.rate)
	}
}

func TestBuildOverview(t *testing.T) {
	incReq := Request{Owner: 1, Kind: core.KindIncome, Today: today, WindowDays: 90}
	expReq := Request{Owner: 1, Kind: core.KindExpense, Today: today, WindowDays: 90}

	salary := rec(1, "3000", "Salary", core.NewDate(2026, 2, 1))
	salary.Kind = core.KindIncome
	income := Aggregate(incReq, []core.Record{salary})
	expenses := Aggregate(expReq, []core.Record{
		rec(2, "1000", "Rent", core.NewDate(2026, 2, 3)),
		rec(3, "500", "Food", core.NewDate(2026, 3, 3)),
	})

	ov := BuildOverview(income, expenses)
	require.True(t, ov.Health.TotalSavings.Equal(decimal.NewFromInt(1500)))
	require.True(t, ov.Health.SavingsRate.Equal(decimal.NewFromInt(50)))
	require.Equal(t, "Excellent", ov.Health.HealthStatus)
	require.True(t, ov.MonthlySavings.Get("February 2026").Equal(decimal.NewFromInt(2000)))
	require.True(t, ov.MonthlySavings.Get("March 2026").Equal(decimal.NewFromInt(-500)))
	require.Equal(t, ov.MonthlyExpenses.Keys(), ov.MonthlySavings.Keys())
}

func TestBuildOverviewWithoutIncome(t *testing.T) {
	req := Request{Owner: 1, Kind: core.KindExpense, Today: today}
	ov := BuildOverview(Aggregate(req, nil), Aggregate(req, []core.Record{rec(1, "10", "Food", today)}))

	require.True(t, ov.Health.SavingsRate.IsZero())
	require.Equal(t, "Fair", ov.Health.HealthStatus)
	require.True(t, ov.Health.TotalSavings.Equal(decimal.NewFromInt(-10)))
}

func TestSummarizeYear(t *testing.T) {
	ys := SummarizeYear(2026, []core.Record{
		rec(1, "10", "Food", core.NewDate(2026, 1, 31)),
		rec(2, "15", "Food", core.NewDate(2026, 4, 1)),
		rec(3, "5", "Food", core.NewDate(2026, 4, 30)),
		rec(4, "99", "Food", core.NewDate(2025, 12, 31)),
	})
	require.True(t, ys.Months[0].Equal(decimal.NewFromInt(10)))
	require.True(t, ys.Months[3].Equal(decimal.NewFromInt(20)))
	require.True(t, ys.Total().Equal(decimal.NewFromInt(30)))

	month, amount := ys.TopMonth()
	require.Equal(t, 4, month)
	require.True(t, amount.Equal(decimal.NewFromInt(20)))

	raw, err := json.Marshal(ys)
	require.NoError(t, err)
	var decoded struct {
		Months   map[string]float64 `json:"months"`
		TopMonth struct {
			Month int `json:"month"`
		} `json:"top_month"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Months, 12)
	require.InDelta(t, 20, decoded.Months["4"], 1e-9)
	require.Equal(t, 4, decoded.TopMonth.Month)
}

type fakeLister struct {
	records []core.Record
	err     error
}

func (f *fakeLister) ListRecords(_ context.Context, q core.RecordQuery) ([]core.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.Record
	for _, r := range f.records {
		if r.Kind == q.Kind && r.Owner == q.Owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)
}

func TestServiceSummaryAndOverview(t *testing.T) {
	salary := rec(10, "2000", "Salary", core.NewDate(2026, 3, 1))
	salary.Kind = core.KindIncome
	lister := &fakeLister{records: []core.Record{
		rec(1, "100", "Food", core.NewDate(2026, 3, 2)),
		rec(2, "300", "Rent", core.NewDate(2026, 2, 2)),
		salary,
	}}
	svc := NewService(lister, BucketCalendar, WithClock(fixedClock))

	res, err := svc.Summary(context.Background(), 1, core.KindExpense, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultWindowDays, res.Window.Days)
	require.Equal(t, "Rent", res.Stats.TopCategory)

	ov, err := svc.Overview(context.Background(), 1, 90)
	require.NoError(t, err)
	require.True(t, ov.Health.TotalIncome.Equal(decimal.NewFromInt(2000)))
	require.True(t, ov.Health.TotalExpenses.Equal(decimal.NewFromInt(400)))
	require.True(t, ov.Health.SavingsRate.Equal(decimal.NewFromInt(80)))

	ys, err := svc.Year(context.Background(), 1, core.KindExpense, 2026)
	require.NoError(t, err)
	require.True(t, ys.Months[1].Equal(decimal.NewFromInt(300)))
}

func TestServicePropagatesStoreErrors(t *testing.T) {
	svc := NewService(&fakeLister{err: errors.New("db down")}, BucketCalendar, WithClock(fixedClock))

	_, err := svc.Summary(context.Background(), 1, core.KindIncome, 30)
	require.ErrorContains(t, err, "db down")

	_, err = svc.Overview(context.Background(), 1, 30)
	require.ErrorContains(t, err, "db down")
}

func TestClampDays(t *testing.T) {
	require.Equal(t, DefaultWindowDays, ClampDays(0))
	require.Equal(t, DefaultWindowDays, ClampDays(-4))
	require.Equal(t, 30, ClampDays(30))
	require.Equal(t, MaxWindowDays, ClampDays(100000))
}
