package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// RecordLister loads records for aggregation.
type RecordLister interface {
	ListRecords(ctx context.Context, q core.RecordQuery) ([]core.Record, error)
}

// Service loads the owner's records and runs the aggregations the report
// endpoints expose.
type Service struct {
	records RecordLister
	mode    BucketMode
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Service)

// WithClock overrides the reference clock used to derive "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(log.ComponentReport) }
}

func NewService(records RecordLister, mode BucketMode, opts ...Option) *Service {
	s := &Service{
		records: records,
		mode:    mode,
		now:     time.Now,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentReport),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Today() core.Date {
	return core.DateOf(s.now())
}

func (s *Service) request(owner int64, kind core.Kind, days int) Request {
	return Request{
		Owner:      owner,
		Kind:       kind,
		Today:      s.Today(),
		WindowDays: ClampDays(days),
		Mode:       s.mode,
	}
}

// Summary aggregates one kind of records over the trailing window.
func (s *Service) Summary(ctx context.Context, owner int64, kind core.Kind, days int) (Result, error) {
	req := s.request(owner, kind, days)
	recs, err := s.records.ListRecords(ctx, req.Query())
	if err != nil {
		return Result{}, fmt.Errorf("load %s: %w", kind.Plural(), err)
	}
	res := Aggregate(req, recs)
	s.logger.DebugContext(ctx, "Aggregated records",
		log.FieldUserID, owner,
		log.FieldKind, string(kind),
		"window_days", req.WindowDays,
		"transactions", res.Stats.TransactionCount,
	)
	return res, nil
}

// Overview loads income and expenses concurrently and compares them.
func (s *Service) Overview(ctx context.Context, owner int64, days int) (Overview, error) {
	incReq := s.request(owner, core.KindIncome, days)
	expReq := s.request(owner, core.KindExpense, days)

	var income, expenses []core.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.records.ListRecords(gctx, incReq.Query())
		if err != nil {
			return fmt.Errorf("load income: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.records.ListRecords(gctx, expReq.Query())
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return BuildOverview(Aggregate(incReq, income), Aggregate(expReq, expenses)), nil
}

// Year returns calendar-month totals for year.
func (s *Service) Year(ctx context.Context, owner int64, kind core.Kind, year int) (YearSummary, error) {
	recs, err := s.records.ListRecords(ctx, YearQuery(owner, kind, year))
	if err != nil {
		return YearSummary{}, fmt.Errorf("load %s for %d: %w", kind.Plural(), year, err)
	}
	return SummarizeYear(year, recs), nil
}

// ClampDays applies the default window and the upper bound.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultWindowDays
	case days > MaxWindowDays:
		return MaxWindowDays
	}
	return days
}
