// Package export writes merged tables out as an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/finforge/pdf2sheet/internal/common"
	"github.com/finforge/pdf2sheet/internal/table"
)

// Writer produces one workbook per document, one sheet per merged table.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteWorkbook writes the merged tables to path. A single table keeps
// the default sheet name; multiple tables are named by their page span.
// Any failure wraps ErrOutputWrite so callers know the checkpoint still
// holds the extracted data.
func (w *Writer) WriteWorkbook(tables []*table.Table, path string) error {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	for i, tbl := range tables {
		name := sheetName(i, tbl, len(tables))
		if i == 0 {
			if name != "Sheet1" {
				if err := f.SetSheetName("Sheet1", name); err != nil {
					return common.NewAppError("OUTPUT_WRITE", fmt.Sprintf("rename sheet: %v", err), common.ErrOutputWrite)
				}
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return common.NewAppError("OUTPUT_WRITE", fmt.Sprintf("create sheet %q: %v", name, err), common.ErrOutputWrite)
			}
		}
		if err := writeSheet(f, name, tbl); err != nil {
			return common.NewAppError("OUTPUT_WRITE", fmt.Sprintf("write sheet %q: %v", name, err), common.ErrOutputWrite)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return common.NewAppError("OUTPUT_WRITE", fmt.Sprintf("save workbook: %v", err), common.ErrOutputWrite)
	}

	w.logger.Info("export.workbook_written",
		"path", path,
		"sheets", len(tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func sheetName(i int, tbl *table.Table, total int) string {
	if total == 1 {
		return "Sheet1"
	}
	name := fmt.Sprintf("Pages%d-%d", tbl.FirstPage, tbl.LastPage)
	if tbl.FirstPage == tbl.LastPage {
		name = fmt.Sprintf("Page%d", tbl.FirstPage)
	}
	// excelize rejects sheet names over 31 characters
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func writeSheet(f *excelize.File, sheet string, tbl *table.Table) error {
	headers := append([]string{"Row Type", "Category"}, tbl.Columns...)
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for ri, row := range tbl.Rows {
		values := make([]string, 0, len(row.Cells)+2)
		values = append(values, string(row.Type), row.Category)
		for _, c := range row.Cells {
			values = append(values, c.Value)
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, ri+2)
			if err != nil {
				return err
			}
			// normalized numerics become real numbers in the sheet
			if col >= 3 {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					if err := f.SetCellValue(sheet, cell, n); err != nil {
						return err
					}
					continue
				}
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
