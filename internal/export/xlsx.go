package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

func writeXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.Title()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	for i, h := range doc.Header() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", headerStyle); err != nil {
		return err
	}

	for i, r := range doc.Records {
		n := i + 2
		amount, _ := r.Amount.Float64()
		values := []any{amount, r.Description, r.Category, r.Date.String()}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, n)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	if len(doc.Records) > 0 {
		last := fmt.Sprintf("A%d", len(doc.Records)+1)
		if err := f.SetCellStyle(sheet, "A2", last, amountStyle); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 40)
	_ = f.SetColWidth(sheet, "C", "C", 20)
	_ = f.SetColWidth(sheet, "D", "D", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
