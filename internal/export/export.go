// Package export renders a user's records as CSV, XLSX or PDF downloads.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Format is a download format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

var (
	ErrUnknownFormat   = errors.New("unknown export format")
	ErrFontUnavailable = errors.New("pdf font unavailable")
)

const timestampLayout = "2006-01-02_150405"

// ParseFormat accepts csv, xlsx (or excel) and pdf.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel", "xls":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Document is what gets exported: one kind of records for one user.
type Document struct {
	Kind        core.Kind
	Currency    string
	Records     []core.Record
	GeneratedAt time.Time
}

// Title is "Expenses" or "Income".
func (d Document) Title() string {
	if d.Kind == core.KindIncome {
		return "Income"
	}
	return "Expenses"
}

// Filename is e.g. Expenses2026-03-15_183000.csv.
func (d Document) Filename(f Format) string {
	return d.Title() + d.GeneratedAt.Format(timestampLayout) + "." + string(f)
}

// Header returns the column titles.
func (d Document) Header() []string {
	return []string{"Amount", "Description", d.Kind.GroupLabel(), "Date"}
}

func (d Document) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range d.Records {
		total = total.Add(r.Amount)
	}
	return total
}

func row(r core.Record) []string {
	return []string{core.FormatAmount(r.Amount), r.Description, r.Category, r.Date.String()}
}

// Exporter writes documents in any supported format.
type Exporter struct {
	fontPath string
	logger   *log.Logger
}

func NewExporter(fontPath string, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{fontPath: fontPath, logger: logger.WithComponent(log.ComponentExport)}
}

// Write renders doc to w.
func (e *Exporter) Write(w io.Writer, f Format, doc Document) error {
	var err error
	switch f {
	case FormatCSV:
		err = writeCSV(w, doc)
	case FormatXLSX:
		err = writeXLSX(w, doc)
	case FormatPDF:
		err = writePDF(w, doc, e.fontPath)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		e.logger.Error("Export failed",
			log.FieldFormat, string(f),
			log.FieldKind, string(doc.Kind),
			log.FieldError, err)
		return err
	}
	e.logger.Debug("Export written",
		log.FieldFormat, string(f),
		log.FieldKind, string(doc.Kind),
		"records", len(doc.Records))
	return nil
}
