package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

func sampleDoc(kind core.Kind) Document {
	return Document{
		Kind:        kind,
		Currency:    "EUR",
		GeneratedAt: time.Date(2026, 3, 15, 18, 30, 5, 0, time.UTC),
		Records: []core.Record{
			{Kind: kind, Amount: decimal.RequireFromString("12.5"), Description: "Lunch, with \"friends\"", Category: "Food", Date: core.NewDate(2026, 3, 14)},
			{Kind: kind, Amount: decimal.RequireFromString("100"), Description: "Train", Category: "Travel", Date: core.NewDate(2026, 2, 1)},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "XLSX": FormatXLSX, "excel": FormatXLSX, "pdf": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFormat("doc")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDocumentNaming(t *testing.T) {
	exp := sampleDoc(core.KindExpense)
	require.Equal(t, "Expenses2026-03-15_183005.csv", exp.Filename(FormatCSV))
	require.Equal(t, []string{"Amount", "Description", "Category", "Date"}, exp.Header())

	inc := sampleDoc(core.KindIncome)
	require.Equal(t, "Income2026-03-15_183005.pdf", inc.Filename(FormatPDF))
	require.Equal(t, "Source", inc.Header()[2])
	require.Equal(t, "112.50", core.FormatAmount(inc.Total()))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	e := NewExporter("", log.Discard())
	require.NoError(t, e.Write(&buf, FormatCSV, sampleDoc(core.KindExpense)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Amount", "Description", "Category", "Date"},
		{"12.50", "Lunch, with \"friends\"", "Food", "2026-03-14"},
		{"100.00", "Train", "Travel", "2026-02-01"},
	}, rows)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	e := NewExporter("", log.Discard())
	require.NoError(t, e.Write(&buf, FormatXLSX, sampleDoc(core.KindIncome)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Income")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Amount", "Description", "Source", "Date"}, rows[0])
	require.Equal(t, "Train", rows[2][1])
	require.Equal(t, "2026-02-01", rows[2][3])
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	doc := sampleDoc(core.KindExpense)
	doc.Records = nil
	require.NoError(t, NewExporter("", nil).Write(&buf, FormatXLSX, doc))
	require.NotZero(t, buf.Len())
}

func TestWritePDFEmbeddedFont(t *testing.T) {
	doc := sampleDoc(core.KindExpense)
	for i := 0; i < 120; i++ {
		doc.Records = append(doc.Records, core.Record{
			Kind: core.KindExpense, Amount: decimal.NewFromInt(1), Description: "Coffee", Category: "Food", Date: core.NewDate(2026, 1, 2),
		})
	}

	pdf, err := buildPDF(doc, "")
	require.NoError(t, err)
	require.Greater(t, pdf.GetNumberOfPages(), 1)

	var buf bytes.Buffer
	require.NoError(t, NewExporter("", nil).Write(&buf, FormatPDF, doc))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "%PDF-"))
	require.Contains(t, out, "/Title <FEFF"+pdfHex(doc.Title())+">")
	require.Contains(t, out, "/Subject <FEFF"+pdfHex("Total: 232.50 EUR")+">")
}

// pdfHex encodes s the way PDF info strings are written.
func pdfHex(s string) string {
	var b strings.Builder
	for _, r := range s {
		fmt.Fprintf(&b, "%04X", r)
	}
	return b.String()
}

func TestWritePDFFontOverride(t *testing.T) {
	var buf bytes.Buffer

	missing := filepath.Join(t.TempDir(), "missing.ttf")
	err := NewExporter(missing, nil).Write(&buf, FormatPDF, sampleDoc(core.KindExpense))
	require.True(t, errors.Is(err, ErrFontUnavailable))
	require.Zero(t, buf.Len())

	garbage := filepath.Join(t.TempDir(), "garbage.ttf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a font"), 0o644))
	err = NewExporter(garbage, nil).Write(&buf, FormatPDF, sampleDoc(core.KindExpense))
	require.ErrorIs(t, err, ErrFontUnavailable)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
