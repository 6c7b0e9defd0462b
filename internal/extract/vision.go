package extract

import (
	"context"
	"encoding/csv"
	"log/slog"
	"strings"

	"github.com/finforge/pdf2sheet/internal/document"
	"github.com/finforge/pdf2sheet/internal/table"
)

// extractionPrompt asks for one CSV table with explicit row typing. The
// Row_Type column comes first and the Category column carries section
// headers forward, which is what lets the merger and the exporter work
// on structure instead of guessing from labels.
const extractionPrompt = `Extract all tabular data from this image and return it as CSV.

Requirements:
1. Focus on the actual table columns: categories, line item descriptions, and numeric columns (years, amounts). Ignore marginal note references (like "Note 14.") in the left margin - they are not table columns.
2. Preserve every row exactly as it appears, including total/summary rows with their full labels and all breakdown/sub-item rows.
3. Add a "Row_Type" column as the FIRST column: "ROLLUP" for total/summary rows (labels containing Total, Gross, Net, Effective), "HEADER" for section title rows, "DETAIL" for everything else.
4. Add a "Category" column as the SECOND column: when a section header appears (e.g. "Utility Expenses"), carry that category name onto every following row until the next header.
5. Keep all numbers and formatting characters. Use commas to separate columns and put values containing commas inside quotes. Include the column header row.
6. Return ONLY the CSV data, no explanation and no code fences.

Do not skip rollup rows, breakdown items, or sub-categories. Every line item visible in the table must appear in the output. If there are multiple tables, extract the largest one.`

// VisionExtractor is the paid path: render the page, send it to the
// vision capability, and parse the delimited response into rows.
type VisionExtractor struct {
	imager PageImager
	model  Model
	logger *slog.Logger
}

func NewVisionExtractor(imager PageImager, model Model, logger *slog.Logger) *VisionExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionExtractor{imager: imager, model: model, logger: logger}
}

// Extract runs the vision path for one page. The returned rotation is the
// correction applied before the capability call. Errors here are the
// capability's (rendering or the model); the orchestrator degrades them
// to an empty page table rather than aborting the document.
func (e *VisionExtractor) Extract(ctx context.Context, doc *document.Document, page int) (*table.Table, int, error) {
	png, rotation, err := e.imager.PageImage(ctx, doc, page)
	if err != nil {
		return nil, 0, err
	}

	text, err := e.model.Complete(ctx, png, extractionPrompt)
	if err != nil {
		return nil, rotation, err
	}

	tbl, err := ParseDelimited(text, page)
	if err != nil {
		return nil, rotation, err
	}
	e.logger.Info("vision_extract.ok",
		"path", doc.Path,
		"page", page,
		"rows", len(tbl.Rows),
		"columns", len(tbl.Columns),
		"rotation", rotation,
	)
	return tbl, rotation, nil
}

// ParseDelimited parses the capability's CSV-shaped response into a
// table. Parsing is progressively looser: strict CSV per line, then
// lazy-quoted CSV, then a raw comma split with parenthesis repair -
// a malformed row is salvaged, not discarded. The whole path is pure,
// so identical responses always parse to identical tables.
func ParseDelimited(content string, page int) (*table.Table, error) {
	content = stripFences(strings.TrimSpace(content))
	if content == "" {
		return &table.Table{FirstPage: page, LastPage: page}, nil
	}

	var records [][]string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, parseLine(line))
	}
	if len(records) < 2 {
		return &table.Table{FirstPage: page, LastPage: page}, nil
	}

	header := records[0]
	typeIdx, catIdx := -1, -1
	var columns []string
	var colIdx []int
	for i, h := range header {
		switch normalizeLabel(h) {
		case "row_type", "rowtype":
			typeIdx = i
		case "category":
			catIdx = i
		default:
			columns = append(columns, strings.TrimSpace(h))
			colIdx = append(colIdx, i)
		}
	}
	if len(columns) == 0 {
		return &table.Table{FirstPage: page, LastPage: page}, nil
	}

	var rows []table.Row
	category := ""
	for _, rec := range records[1:] {
		rec = repairRowParens(rec)

		values := make([]string, len(columns))
		for vi, ri := range colIdx {
			if ri < len(rec) {
				values[vi] = table.NormalizeNumeric(repairCellParens(rec[ri]))
			}
		}

		typ := table.RowType("")
		if typeIdx >= 0 && typeIdx < len(rec) {
			switch strings.ToUpper(strings.TrimSpace(rec[typeIdx])) {
			case string(table.RowTypeHeader):
				typ = table.RowTypeHeader
			case string(table.RowTypeRollup):
				typ = table.RowTypeRollup
			case string(table.RowTypeDetail):
				typ = table.RowTypeDetail
			}
		}
		if typ == "" {
			typ = table.ClassifyRow(values[0], values[1:])
		}

		if catIdx >= 0 && catIdx < len(rec) && strings.TrimSpace(rec[catIdx]) != "" {
			category = strings.TrimSpace(rec[catIdx])
		} else if typ == table.RowTypeHeader {
			category = values[0]
		}

		rows = append(rows, table.MakeRow(typ, category, columns, values))
	}

	return table.New(columns, rows, page)
}

// stripFences removes a surrounding markdown code block if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// parseLine splits one response line into cells, falling back from strict
// CSV to lazy quotes to a raw split.
func parseLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	if rec, err := r.Read(); err == nil {
		return rec
	}
	r = csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	if rec, err := r.Read(); err == nil {
		return rec
	}
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
