package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// PageSize is the number of records per list page.
const PageSize = 5

// EventPublisher receives record events after successful mutations.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// RecordInput carries raw form values for a record.
type RecordInput struct {
	Amount      string `validate:"required"`
	Description string `validate:"required,max=255"`
	Date        string `validate:"required"`
	Category    string `validate:"max=100"`
}

// FieldError reports an invalid form field with a user-facing message.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string { return e.Message }
func (e *FieldError) Unwrap() error { return e.Err }

var fieldLabels = map[string]string{
	"Amount":      "Amount",
	"Description": "Description",
	"Date":        "Date",
	"Category":    "Category",
}

// Listing is one page of records.
type Listing struct {
	Records []core.Record
	Page    core.Page
}

// RecordService orchestrates record operations across storage and AMQP.
type RecordService struct {
	store     ports.RecordStore
	publisher EventPublisher
	validate  *validator.Validate
	logger    *log.StructuredLogger
	raw       *log.Logger
}

// NewRecordService builds the service; publisher may be nil.
func NewRecordService(store ports.RecordStore, publisher EventPublisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentRecords)
	return &RecordService{
		store:     store,
		publisher: publisher,
		validate:  validator.New(),
		logger:    log.NewStructuredLogger(logger),
		raw:       logger,
	}
}

// Parse validates raw input and builds a normalized record.
func (s *RecordService) Parse(owner int64, kind core.Kind, in RecordInput) (core.Record, error) {
	if !kind.Valid() {
		return core.Record{}, core.ErrInvalidKind
	}
	if err := s.validate.Struct(in); err != nil {
		return core.Record{}, toFieldError(err)
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Record{}, &FieldError{Field: "amount", Message: "Amount must be a positive number", Err: err}
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Record{}, &FieldError{Field: "date", Message: "Date must be in YYYY-MM-DD format", Err: err}
	}

	rec := core.Record{
		Kind:        kind,
		Owner:       owner,
		Amount:      amount,
		Date:        date,
		Category:    in.Category,
		Description: in.Description,
	}
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return core.Record{}, recordFieldError(err)
	}
	return rec, nil
}

// recordFieldError maps domain validation failures to form fields.
func recordFieldError(err error) error {
	switch {
	case errors.Is(err, core.ErrEmptyDescription):
		return &FieldError{Field: "description", Message: "Description is required", Err: err}
	case errors.Is(err, core.ErrDescriptionTooLong):
		return &FieldError{Field: "description", Message: fmt.Sprintf("Description must be at most %d characters", core.MaxDescriptionLen), Err: err}
	case errors.Is(err, core.ErrCategoryTooLong):
		return &FieldError{Field: "category", Message: fmt.Sprintf("Category must be at most %d characters", core.MaxCategoryLen), Err: err}
	case errors.Is(err, core.ErrInvalidAmount):
		return &FieldError{Field: "amount", Message: "Amount must be a positive number", Err: err}
	case errors.Is(err, core.ErrInvalidDate):
		return &FieldError{Field: "date", Message: "Date must be in YYYY-MM-DD format", Err: err}
	}
	return &FieldError{Field: "record", Message: "Record is invalid", Err: err}
}

func toFieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	label := fieldLabels[fe.Field()]
	msg := label + " is invalid"
	switch fe.Tag() {
	case "required":
		msg = label + " is required"
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	}
	return &FieldError{Field: lowerFirst(fe.Field()), Message: msg, Err: err}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}

// Create saves a record and publishes a created event.
func (s *RecordService) Create(ctx context.Context, owner int64, kind core.Kind, in RecordInput) (core.Record, error) {
	rec, err := s.Parse(owner, kind, in)
	if err != nil {
		return core.Record{}, err
	}

	saved, err := s.store.CreateRecord(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("save %s: %w", kind, err)
	}

	s.logChange(ctx, log.OpCreate, saved)
	s.publish(ctx, amqp.EventCreated, saved)
	return saved, nil
}

// Update replaces the editable fields of an owned record.
func (s *RecordService) Update(ctx context.Context, owner int64, kind core.Kind, id int64, in RecordInput) (core.Record, error) {
	rec, err := s.Parse(owner, kind, in)
	if err != nil {
		return core.Record{}, err
	}
	rec.ID = id

	saved, err := s.store.UpdateRecord(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s %d: %w", kind, id, err)
	}

	s.logChange(ctx, log.OpUpdate, saved)
	s.publish(ctx, amqp.EventUpdated, saved)
	return saved, nil
}

// Delete removes an owned record and publishes a deleted event.
func (s *RecordService) Delete(ctx context.Context, owner int64, kind core.Kind, id int64) error {
	if err := s.store.DeleteRecord(ctx, owner, kind, id); err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}

	rec := core.Record{ID: id, Kind: kind, Owner: owner}
	s.logChange(ctx, log.OpDelete, rec)
	s.publish(ctx, amqp.EventDeleted, rec)
	return nil
}

func (s *RecordService) Get(ctx context.Context, owner int64, kind core.Kind, id int64) (core.Record, error) {
	return s.store.GetRecord(ctx, owner, kind, id)
}

// List returns one page of the owner's records, newest first. Out-of-range
// page numbers are clamped.
func (s *RecordService) List(ctx context.Context, owner int64, kind core.Kind, page int) (Listing, error) {
	total, err := s.store.CountRecords(ctx, owner, kind)
	if err != nil {
		return Listing{}, fmt.Errorf("count %s: %w", kind.Plural(), err)
	}
	p := core.NewPage(page, PageSize, total)
	recs, err := s.store.ListRecords(ctx, core.RecordQuery{
		Owner:  owner,
		Kind:   kind,
		Limit:  p.Size,
		Offset: p.Offset(),
	})
	if err != nil {
		return Listing{}, fmt.Errorf("list %s: %w", kind.Plural(), err)
	}
	return Listing{Records: recs, Page: p}, nil
}

// All returns every record of kind, newest first.
func (s *RecordService) All(ctx context.Context, owner int64, kind core.Kind) ([]core.Record, error) {
	recs, err := s.store.ListRecords(ctx, core.RecordQuery{Owner: owner, Kind: kind})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Plural(), err)
	}
	return recs, nil
}

func (s *RecordService) Search(ctx context.Context, owner int64, kind core.Kind, text string) ([]core.Record, error) {
	recs, err := s.store.SearchRecords(ctx, owner, kind, text)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind.Plural(), err)
	}
	return recs, nil
}

func (s *RecordService) logChange(ctx context.Context, op string, r core.Record) {
	date := ""
	if !r.Date.IsZero() {
		date = r.Date.String()
	}
	s.logger.LogRecordChanged(ctx, op, r.Owner, r.ID, string(r.Kind), r.Description, core.ToCents(r.Amount), r.Category, date)
}

// publish never fails the caller: the record is already saved.
func (s *RecordService) publish(ctx context.Context, t amqp.EventType, r core.Record) {
	if s.publisher == nil {
		s.raw.DebugContext(ctx, "AMQP publisher not configured, skipping record event", log.FieldRecordID, r.ID)
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, amqp.NewRecordEvent(t, r)); err != nil {
		s.logger.LogError(ctx, "Failed to publish record event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithUser(r.Owner).WithRecord(r.ID, string(r.Kind), "", 0, "", ""))
	}
}
