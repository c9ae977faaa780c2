package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// EventType names what happened to a record.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// RecordSnapshot is the record state carried by created/updated events so
// consumers do not need access to the database.
type RecordSnapshot struct {
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// RecordEvent is published after every record mutation.
type RecordEvent struct {
	Type      EventType       `json:"type"`
	RecordID  int64           `json:"record_id"`
	Kind      core.Kind       `json:"kind"`
	Owner     int64           `json:"owner"`
	Record    *RecordSnapshot `json:"record,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewRecordEvent builds an event for r. Deleted events carry no snapshot.
func NewRecordEvent(t EventType, r core.Record) *RecordEvent {
	ev := &RecordEvent{
		Type:      t,
		RecordID:  r.ID,
		Kind:      r.Kind,
		Owner:     r.Owner,
		Timestamp: time.Now().UTC(),
	}
	if t != EventDeleted {
		ev.Record = &RecordSnapshot{
			Amount:      core.FormatAmount(r.Amount),
			Date:        r.Date.String(),
			Category:    r.Category,
			Description: r.Description,
		}
	}
	return ev
}

// ToRecord rebuilds the record the event describes.
func (e *RecordEvent) ToRecord() (core.Record, error) {
	rec := core.Record{ID: e.RecordID, Kind: e.Kind, Owner: e.Owner}
	if e.Record == nil {
		return rec, nil
	}
	amount, err := decimal.NewFromString(e.Record.Amount)
	if err != nil {
		return core.Record{}, fmt.Errorf("event amount %q: %w", e.Record.Amount, err)
	}
	date, err := core.ParseDate(e.Record.Date)
	if err != nil {
		return core.Record{}, fmt.Errorf("event date %q: %w", e.Record.Date, err)
	}
	rec.Amount = amount
	rec.Date = date
	rec.Category = e.Record.Category
	rec.Description = e.Record.Description
	return rec, nil
}

// Validate rejects events a consumer can never process.
func (e *RecordEvent) Validate() error {
	switch e.Type {
	case EventCreated, EventUpdated:
		if e.Record == nil {
			return fmt.Errorf("%s event for record %d has no snapshot", e.Type, e.RecordID)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.RecordID <= 0 {
		return fmt.Errorf("invalid record id %d", e.RecordID)
	}
	if !e.Kind.Valid() {
		return core.ErrInvalidKind
	}
	if _, err := e.ToRecord(); err != nil {
		return err
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes and validates an event.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
