package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.RecordEvent
	err    error
}

func (p *fakePublisher) PublishRecordEvent(_ context.Context, ev *amqp.RecordEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func newTestService(pub EventPublisher) (*RecordService, *memory.Store) {
	store := memory.New(nil, nil)
	return NewRecordService(store, pub, log.Discard()), store
}

func validInput() RecordInput {
	return RecordInput{Amount: "12,50", Description: " Groceries ", Date: "2026-02-03", Category: "Food"}
}

func TestParse_ValidationOrder(t *testing.T) {
	svc, _ := newTestService(nil)

	tests := []struct {
		name  string
		in    RecordInput
		field string
		msg   string
	}{
		{"everything missing", RecordInput{}, "amount", "Amount is required"},
		{"missing description", RecordInput{Amount: "1"}, "description", "Description is required"},
		{"missing date", RecordInput{Amount: "1", Description: "x"}, "date", "Date is required"},
		{"blank description", RecordInput{Amount: "1", Description: "   ", Date: "2026-01-01"}, "description", "Description is required"},
		{"negative amount", RecordInput{Amount: "-3", Description: "x", Date: "2026-01-01"}, "amount", "Amount must be a positive number"},
		{"bad date", RecordInput{Amount: "3", Description: "x", Date: "03/01/2026"}, "date", "Date must be in YYYY-MM-DD format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Parse(1, core.KindExpense, tt.in)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tt.field, fe.Field)
			require.Equal(t, tt.msg, fe.Message)
		})
	}
}

func TestParse_LengthLimitsCountCharacters(t *testing.T) {
	svc, _ := newTestService(nil)

	in := validInput()
	in.Description = strings.Repeat("€", 200)
	in.Category = strings.Repeat("é", 100)
	rec, err := svc.Parse(1, core.KindExpense, in)
	require.NoError(t, err)
	require.Equal(t, 200, utf8.RuneCountInString(rec.Description))

	in = validInput()
	in.Description = strings.Repeat("€", 256)
	_, err = svc.Parse(1, core.KindExpense, in)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "description", fe.Field)
	require.Equal(t, "Description must be at most 255 characters", fe.Message)

	in = validInput()
	in.Category = strings.Repeat("ü", 101)
	_, err = svc.Parse(1, core.KindExpense, in)
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "category", fe.Field)
}

func TestParse_Normalizes(t *testing.T) {
	svc, _ := newTestService(nil)

	in := validInput()
	in.Category = "  "
	rec, err := svc.Parse(9, core.KindIncome, in)
	require.NoError(t, err)
	require.Equal(t, "12.50", core.FormatAmount(rec.Amount))
	require.Equal(t, "Groceries", rec.Description)
	require.Equal(t, core.Uncategorized, rec.Category)
	require.Equal(t, int64(9), rec.Owner)

	_, err = svc.Parse(9, core.Kind("transfer"), in)
	require.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestRecordService_CreatePublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	rec, err := svc.Create(ctx, 1, core.KindExpense, validInput())
	require.NoError(t, err)
	require.NotZero(t, rec.ID)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	require.Equal(t, amqp.EventCreated, ev.Type)
	require.Equal(t, rec.ID, ev.RecordID)
	require.Equal(t, "12.50", ev.Record.Amount)
}

func TestRecordService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, store := newTestService(pub)
	ctx := context.Background()

	rec, err := svc.Create(ctx, 1, core.KindExpense, validInput())
	require.NoError(t, err)

	_, err = store.GetRecord(ctx, 1, core.KindExpense, rec.ID)
	require.NoError(t, err)
}

func TestRecordService_UpdateAndDelete(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(pub)
	ctx := context.Background()

	rec, err := svc.Create(ctx, 1, core.KindExpense, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Amount = "99"
	in.Description = "Dinner"
	updated, err := svc.Update(ctx, 1, core.KindExpense, rec.ID, in)
	require.NoError(t, err)
	require.Equal(t, "99.00", core.FormatAmount(updated.Amount))
	require.Equal(t, "Dinner", updated.Description)

	// Another owner can neither update nor delete.
	_, err = svc.Update(ctx, 2, core.KindExpense, rec.ID, in)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 2, core.KindExpense, rec.ID), core.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, 1, core.KindExpense, rec.ID))
	_, err = svc.Get(ctx, 1, core.KindExpense, rec.ID)
	require.ErrorIs(t, err, core.ErrNotFound)

	require.Len(t, pub.events, 3)
	require.Equal(t, amqp.EventUpdated, pub.events[1].Type)
	require.Equal(t, amqp.EventDeleted, pub.events[2].Type)
	require.Nil(t, pub.events[2].Record)
}

func TestRecordService_ListPages(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	dates := []string{"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04", "2026-01-05", "2026-01-06", "2026-01-07"}
	for _, d := range dates {
		in := validInput()
		in.Date = d
		_, err := svc.Create(ctx, 1, core.KindExpense, in)
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, 1, core.KindExpense, 1)
	require.NoError(t, err)
	require.Len(t, first.Records, PageSize)
	require.Equal(t, "2026-01-07", first.Records[0].Date.String())
	require.Equal(t, 2, first.Page.TotalPages)
	require.True(t, first.Page.HasNext())

	last, err := svc.List(ctx, 1, core.KindExpense, 40)
	require.NoError(t, err)
	require.Equal(t, 2, last.Page.Number)
	require.Len(t, last.Records, 2)
	require.Equal(t, "2026-01-01", last.Records[1].Date.String())

	empty, err := svc.List(ctx, 2, core.KindExpense, 1)
	require.NoError(t, err)
	require.Empty(t, empty.Records)
	require.Equal(t, 1, empty.Page.TotalPages)

	all, err := svc.All(ctx, 1, core.KindExpense)
	require.NoError(t, err)
	require.Len(t, all, len(dates))
}

func TestRecordService_Search(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, core.KindExpense, validInput())
	require.NoError(t, err)
	in := validInput()
	in.Description = "Train"
	in.Category = "Travel"
	_, err = svc.Create(ctx, 1, core.KindExpense, in)
	require.NoError(t, err)

	got, err := svc.Search(ctx, 1, core.KindExpense, "grocer")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.Search(ctx, 1, core.KindExpense, "trav")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Train", got[0].Description)
}
