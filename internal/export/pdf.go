package export

import (
	"fmt"
	"io"
	"os"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"

	"expensetracker/internal/core"
)

const (
	pdfMargin     = 40.0
	pdfRowHeight  = 18.0
	pdfPageBottom = 800.0
	pdfFont       = "body"
)

// column x offsets for Amount, Description, Category, Date
var pdfColumns = []float64{pdfMargin, 130, 360, 470}

func writePDF(w io.Writer, doc Document, fontPath string) error {
	pdf, err := buildPDF(doc, fontPath)
	if err != nil {
		return err
	}
	if err := pdf.Write(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// loadFont registers the body font. An empty path uses the embedded Go
// Regular face; a configured path must point at a readable TTF.
func loadFont(pdf *gopdf.GoPdf, fontPath string) error {
	if fontPath == "" {
		if err := pdf.AddTTFFontData(pdfFont, goregular.TTF); err != nil {
			return fmt.Errorf("%w: embedded font: %v", ErrFontUnavailable, err)
		}
		return nil
	}
	if _, err := os.Stat(fontPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}
	if err := pdf.AddTTFFont(pdfFont, fontPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}
	return nil
}

func totalLine(doc Document) string {
	return fmt.Sprintf("Total: %s %s", core.FormatAmount(doc.Total()), doc.Currency)
}

func buildPDF(doc Document, fontPath string) (*gopdf.GoPdf, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := loadFont(pdf, fontPath); err != nil {
		return nil, err
	}
	pdf.SetInfo(gopdf.PdfInfo{
		Title:        doc.Title(),
		Subject:      totalLine(doc),
		Creator:      "expensetracker",
		CreationDate: doc.GeneratedAt,
	})

	pdf.AddPage()
	if err := pdf.SetFont(pdfFont, "", 18); err != nil {
		return nil, err
	}
	pdf.SetXY(pdfMargin, pdfMargin)
	if err := pdf.Cell(nil, doc.Title()); err != nil {
		return nil, err
	}

	if err := pdf.SetFont(pdfFont, "", 10); err != nil {
		return nil, err
	}
	pdf.SetXY(pdfMargin, pdfMargin+24)
	if err := pdf.Cell(nil, "Generated "+doc.GeneratedAt.Format("2006-01-02 15:04")+" ("+doc.Currency+")"); err != nil {
		return nil, err
	}

	y := pdfMargin + 56
	if err := pdfRow(pdf, y, doc.Header()); err != nil {
		return nil, err
	}
	pdf.Line(pdfMargin, y+pdfRowHeight-4, 555, y+pdfRowHeight-4)
	y += pdfRowHeight

	for _, r := range doc.Records {
		if y > pdfPageBottom {
			pdf.AddPage()
			y = pdfMargin
		}
		if err := pdfRow(pdf, y, pdfCells(r)); err != nil {
			return nil, err
		}
		y += pdfRowHeight
	}

	y += pdfRowHeight / 2
	if y > pdfPageBottom {
		pdf.AddPage()
		y = pdfMargin
	}
	pdf.Line(pdfMargin, y-4, 555, y-4)
	pdf.SetXY(pdfMargin, y)
	if err := pdf.Cell(nil, totalLine(doc)); err != nil {
		return nil, err
	}
	return pdf, nil
}

func pdfCells(r core.Record) []string {
	cells := row(r)
	cells[1] = truncate(cells[1], 45)
	cells[2] = truncate(cells[2], 20)
	return cells
}

func pdfRow(pdf *gopdf.GoPdf, y float64, cells []string) error {
	for i, text := range cells {
		pdf.SetXY(pdfColumns[i], y)
		if err := pdf.Cell(nil, text); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
