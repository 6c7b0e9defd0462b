package table

import (
	"fmt"
	"strings"
)

// RowType classifies a table row as a section header, a detail line item,
// or a summary/total line.
type RowType string

const (
	RowTypeHeader RowType = "HEADER"
	RowTypeDetail RowType = "DETAIL"
	RowTypeRollup RowType = "ROLLUP"
)

// Cell is one (column label, value) pair. Values are kept as strings;
// numeric-looking values are normalized at extraction time.
type Cell struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Row is a fixed-shape record: row type, category label, and an ordered
// list of cells whose columns match the owning table's column set.
type Row struct {
	Type     RowType `json:"type"`
	Category string  `json:"category"`
	Cells    []Cell  `json:"cells"`
}

// Table is an ordered sequence of rows sharing one column set, associated
// with the page range it came from. FirstPage == LastPage until tables are
// merged across pages.
type Table struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	FirstPage int      `json:"first_page"`
	LastPage  int      `json:"last_page"`
}

// New builds a table over the given page and validates the rectangular
// invariant: every row carries exactly the table's columns, in order.
func New(columns []string, rows []Row, page int) (*Table, error) {
	t := &Table{Columns: columns, Rows: rows, FirstPage: page, LastPage: page}
	if err := t.CheckRectangular(); err != nil {
		return nil, err
	}
	return t, nil
}

// CheckRectangular validates that every row's cell columns equal the
// table's column set in order.
func (t *Table) CheckRectangular() error {
	for i, r := range t.Rows {
		if len(r.Cells) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, table has %d columns", i, len(r.Cells), len(t.Columns))
		}
		for j, c := range r.Cells {
			if c.Column != t.Columns[j] {
				return fmt.Errorf("row %d cell %d labeled %q, column is %q", i, j, c.Column, t.Columns[j])
			}
		}
	}
	return nil
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// NumericCells counts cells holding a numeric value.
func (t *Table) NumericCells() int {
	n := 0
	for _, r := range t.Rows {
		for _, c := range r.Cells {
			if IsNumeric(c.Value) {
				n++
			}
		}
	}
	return n
}

// MakeRow aligns values to columns, padding short rows with blanks and
// truncating long ones. The caller decides the row type and category.
func MakeRow(typ RowType, category string, columns, values []string) Row {
	cells := make([]Cell, len(columns))
	for i, col := range columns {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		cells[i] = Cell{Column: col, Value: v}
	}
	return Row{Type: typ, Category: category, Cells: cells}
}

// rollupVocab is the total/summary vocabulary used to recognize rollup rows.
var rollupVocab = []string{"total", "subtotal", "gross", "net operating income", "noi", "effective gross"}

// ClassifyRow derives a row type from structural signals: a label with no
// numeric values is a section header, a label matching total/summary
// vocabulary is a rollup, everything else is a detail line.
func ClassifyRow(label string, values []string) RowType {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, v := range rollupVocab {
		if strings.Contains(l, v) {
			return RowTypeRollup
		}
	}
	for _, v := range values {
		if IsNumeric(v) {
			return RowTypeDetail
		}
	}
	if l != "" {
		return RowTypeHeader
	}
	return RowTypeDetail
}
