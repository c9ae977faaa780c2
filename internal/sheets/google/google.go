// Package google mirrors records into a Google Sheets spreadsheet, one tab
// per record kind, one row per record keyed by the record ID in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Options configures the client.
type Options struct {
	SpreadsheetID   string
	ExpensesSheet   string
	IncomeSheet     string
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the slice of the Sheets values API the client uses.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheets        map[core.Kind]string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc}, opts, logger), nil
}

func newClient(values valuesAPI, opts Options, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	expenses := strings.TrimSpace(opts.ExpensesSheet)
	if expenses == "" {
		expenses = "Expenses"
	}
	income := strings.TrimSpace(opts.IncomeSheet)
	if income == "" {
		income = "Income"
	}
	return &Client{
		values:        values,
		spreadsheetID: opts.SpreadsheetID,
		sheets:        map[core.Kind]string{core.KindExpense: expenses, core.KindIncome: income},
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets service from inline or file-based
// service account credentials, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	if len(credentialsJSON) == 0 {
		file := strings.TrimSpace(opts.CredentialsFile)
		if file == "" {
			file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		}
		if file == "" {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
		}
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) sheetFor(kind core.Kind) (string, error) {
	name, ok := c.sheets[kind]
	if !ok {
		return "", core.ErrInvalidKind
	}
	return name, nil
}

// UpsertRecord writes r to the row carrying its ID, appending a new row when
// the record is not in the sheet yet. The header row is written on first use.
func (c *Client) UpsertRecord(ctx context.Context, r core.Record) error {
	sheet, err := c.sheetFor(r.Kind)
	if err != nil {
		return err
	}

	ids, err := c.values.Get(ctx, c.spreadsheetID, fmt.Sprintf("%s!A:A", sheet))
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", sheet, err)
	}

	if len(ids) == 0 {
		hdr := fmt.Sprintf("%s!A1:%s1", sheet, lastColumn)
		if err := c.values.Update(ctx, c.spreadsheetID, hdr, [][]any{headerRow(r.Kind)}); err != nil {
			return fmt.Errorf("write header to %s: %w", sheet, err)
		}
		ids = [][]any{headerRow(r.Kind)[:1]}
	}

	n := findRow(ids, r.ID)
	if n == 0 {
		n = len(ids) + 1
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, n, lastColumn, n)
	if err := c.values.Update(ctx, c.spreadsheetID, rng, [][]any{recordRow(r)}); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	c.logger.DebugContext(ctx, "Record mirrored to sheet",
		log.FieldRecordID, r.ID,
		log.FieldKind, string(r.Kind),
		"range", rng)
	return nil
}

// DeleteRecord clears the row for id. A record missing from the sheet is not
// an error.
func (c *Client) DeleteRecord(ctx context.Context, kind core.Kind, id int64) error {
	sheet, err := c.sheetFor(kind)
	if err != nil {
		return err
	}

	ids, err := c.values.Get(ctx, c.spreadsheetID, fmt.Sprintf("%s!A:A", sheet))
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", sheet, err)
	}
	n := findRow(ids, id)
	if n == 0 {
		c.logger.DebugContext(ctx, "Record not in sheet, nothing to clear",
			log.FieldRecordID, id,
			log.FieldKind, string(kind))
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, n, lastColumn, n)
	if err := c.values.Clear(ctx, c.spreadsheetID, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ListRecords reads back every record row of kind.
func (c *Client) ListRecords(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	sheet, err := c.sheetFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := c.values.Get(ctx, c.spreadsheetID, fmt.Sprintf("%s!A:%s", sheet, lastColumn))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	var out []core.Record
	for _, row := range rows {
		r, ok := parseRow(toStrings(row), kind)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// serviceValues adapts *gsheet.Service to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (s *serviceValues) Get(ctx context.Context, id, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, id, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(id, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (s *serviceValues) Clear(ctx context.Context, id, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(id, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
