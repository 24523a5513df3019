// internal/export/trend.go
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"mcp-prenatal-log/internal/models"
)

const sheetName = "Trend"

// TrendWorkbook renders trend periods as an xlsx workbook: one row per
// period, one ratio column per nutrient. Unknown and partial ratios are left
// out and the status is written in their place.
func TrendWorkbook(periods []models.PeriodProgress) (*bytes.Buffer, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	ratioStyle, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create ratio style: %w", err)
	}

	headers := []interface{}{"Start", "End", "Trimester", "Entries"}
	for _, n := range models.TrackedNutrients {
		headers = append(headers, fmt.Sprintf("%s (%s)", n, n.CanonicalUnit()))
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "B", 12); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, p := range periods {
		row := i + 2
		values := []interface{}{p.Start, p.End, p.Trimester, p.Totals.EntryCount}
		for _, n := range models.TrackedNutrients {
			prog := p.Progress[n]
			if prog.Ratio != nil {
				values = append(values, *prog.Ratio)
			} else {
				values = append(values, string(prog.Status))
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	if len(periods) > 0 {
		if err := f.SetCellStyle(sheetName, "E2", fmt.Sprintf("%s%d", lastCol, len(periods)+1), ratioStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set ratio style: %w", err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return &buf, nil
}
