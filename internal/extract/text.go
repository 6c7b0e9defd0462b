package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/finforge/pdf2sheet/internal/document"
	"github.com/finforge/pdf2sheet/internal/render"
	"github.com/finforge/pdf2sheet/internal/table"
)

// PdftotextSource reads a page's text with layout preserved, which keeps
// table columns aligned as runs of spaces.
type PdftotextSource struct {
	bin    string
	runner render.Runner
}

func NewPdftotextSource(bin string, runner render.Runner) *PdftotextSource {
	if runner == nil {
		runner = render.ExecRunner{}
	}
	return &PdftotextSource{bin: bin, runner: runner}
}

func (s *PdftotextSource) LayoutText(ctx context.Context, path string, page int) (string, error) {
	pageArg := fmt.Sprintf("%d", page)
	// pdftotext -layout -enc UTF-8 -eol unix -f N -l N <path> -
	out, errb, err := s.runner.Run(ctx, s.bin,
		"-layout", "-enc", "UTF-8", "-eol", "unix",
		"-f", pageArg, "-l", pageArg,
		path, "-",
	)
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w (%s)", page, err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

// Stats carries structural observations from text parsing that the table
// itself no longer shows once rows are padded rectangular.
type Stats struct {
	DataLines   int
	RaggedLines int
}

// TextExtractor parses tabular structure out of a page's text layer.
// It is the free path; the quality gate decides per page whether its
// output stands or the page is re-routed through vision extraction.
type TextExtractor struct {
	source PageSource
	logger *slog.Logger
}

func NewTextExtractor(source PageSource, logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{source: source, logger: logger}
}

var cellSplit = regexp.MustCompile(`\s{2,}`)

// Extract parses the page's layout text into a table. Lines split into
// cells on runs of two or more spaces; the first multi-cell line becomes
// the column header. Rows are typed structurally and the category label
// carries forward from section header rows. Ragged lines are padded to
// the column set and counted for the quality gate.
func (e *TextExtractor) Extract(ctx context.Context, doc *document.Document, page int) (*table.Table, Stats, error) {
	text, err := e.source.LayoutText(ctx, doc.Path, page)
	if err != nil {
		e.logger.Warn("text_extract.layout_failed", "path", doc.Path, "page", page, "error", err)
		return &table.Table{FirstPage: page, LastPage: page}, Stats{}, nil
	}

	var lines [][]string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, " \t\f")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		cells := cellSplit.Split(strings.TrimSpace(raw), -1)
		lines = append(lines, cells)
	}

	// Header: first line with at least two cells.
	headerIdx := -1
	for i, cells := range lines {
		if len(cells) >= 2 {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return &table.Table{FirstPage: page, LastPage: page}, Stats{}, nil
	}
	columns := lines[headerIdx]

	var rows []table.Row
	var stats Stats
	category := ""
	for _, cells := range lines[headerIdx+1:] {
		stats.DataLines++
		// single-cell lines are section labels, not ragged data
		if len(cells) != len(columns) && len(cells) > 1 {
			stats.RaggedLines++
		}

		label := cells[0]
		values := make([]string, len(cells))
		values[0] = label
		for i := 1; i < len(cells); i++ {
			values[i] = table.NormalizeNumeric(cells[i])
		}

		typ := table.ClassifyRow(label, values[1:])
		if typ == table.RowTypeHeader {
			category = label
		}
		rows = append(rows, table.MakeRow(typ, category, columns, values))
	}

	tbl, err := table.New(columns, rows, page)
	if err != nil {
		return nil, stats, err
	}
	e.logger.Debug("text_extract.ok",
		"path", doc.Path,
		"page", page,
		"rows", len(tbl.Rows),
		"columns", len(tbl.Columns),
		"ragged", stats.RaggedLines,
	)
	return tbl, stats, nil
}
