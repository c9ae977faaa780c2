// Package worker applies record events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// RecordMirror is the spreadsheet side of the sync.
type RecordMirror interface {
	UpsertRecord(ctx context.Context, r core.Record) error
	DeleteRecord(ctx context.Context, kind core.Kind, id int64) error
	ListRecords(ctx context.Context, kind core.Kind) ([]core.Record, error)
}

// Stats counts handled events since start.
type Stats struct {
	Upserted int64
	Deleted  int64
	Failed   int64
}

// SyncWorker mirrors record events into a spreadsheet.
type SyncWorker struct {
	mirror RecordMirror
	logger *log.Logger

	upserted atomic.Int64
	deleted  atomic.Int64
	failed   atomic.Int64
}

func NewSyncWorker(mirror RecordMirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRecordEvent applies one event. A returned error makes the consumer
// requeue the message.
func (w *SyncWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	w.logger.InfoContext(ctx, "Processing record event",
		log.FieldEventType, string(ev.Type),
		log.FieldRecordID, ev.RecordID,
		log.FieldKind, string(ev.Kind))

	var err error
	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		err = w.upsert(ctx, ev)
	case amqp.EventDeleted:
		err = w.mirror.DeleteRecord(ctx, ev.Kind, ev.RecordID)
		if err == nil {
			w.deleted.Add(1)
		}
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
	}

	if err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to sync record",
			log.FieldEventType, string(ev.Type),
			log.FieldRecordID, ev.RecordID,
			log.FieldError, err)
		return fmt.Errorf("sync %s record %d: %w", ev.Kind, ev.RecordID, err)
	}

	w.logger.InfoContext(ctx, "Record synced",
		log.FieldEventType, string(ev.Type),
		log.FieldRecordID, ev.RecordID,
		log.FieldOperation, log.OpSync)
	return nil
}

func (w *SyncWorker) upsert(ctx context.Context, ev *amqp.RecordEvent) error {
	rec, err := ev.ToRecord()
	if err != nil {
		return err
	}
	if err := w.mirror.UpsertRecord(ctx, rec); err != nil {
		return err
	}
	w.upserted.Add(1)
	return nil
}

// CheckMirror reads back both sheets so a missing sheet or a credential
// without access fails at startup rather than on the first event.
// It returns the number of mirrored rows per kind.
func (w *SyncWorker) CheckMirror(ctx context.Context) (map[core.Kind]int, error) {
	counts := make(map[core.Kind]int, 2)
	for _, kind := range []core.Kind{core.KindExpense, core.KindIncome} {
		recs, err := w.mirror.ListRecords(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("read %s mirror: %w", kind, err)
		}
		counts[kind] = len(recs)
		w.logger.InfoContext(ctx, "Mirror sheet readable",
			log.FieldKind, string(kind),
			"rows", len(recs))
	}
	return counts, nil
}

func (w *SyncWorker) Stats() Stats {
	return Stats{
		Upserted: w.upserted.Load(),
		Deleted:  w.deleted.Load(),
		Failed:   w.failed.Load(),
	}
}
