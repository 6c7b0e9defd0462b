package table

import (
	"fmt"
	"log/slog"
)

// Merger joins per-page tables into logical tables when consecutive pages
// show continuation evidence: compatible column sets, no terminating rollup
// on the earlier table, and no fresh header opening the later one.
type Merger struct {
	logger *slog.Logger
}

func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger}
}

// Merge collapses a page-ordered sequence of tables greedily left-to-right,
// so continuations spanning arbitrarily many pages become a single table.
// Tables must arrive in ascending page order; anything else is rejected.
func (m *Merger) Merge(tables []*Table) ([]*Table, error) {
	var out []*Table
	for _, t := range tables {
		var err error
		out, err = m.Append(out, t)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Append is the incremental merge step: it either joins next onto the last
// merged table or starts a new one. The orchestrator calls this per page,
// which makes the resume seam (checkpointed table vs first new page)
// identical to any other adjacent pair.
func (m *Merger) Append(merged []*Table, next *Table) ([]*Table, error) {
	if next.Empty() {
		// A failed page contributes nothing and breaks physical adjacency.
		return merged, nil
	}
	if len(merged) == 0 {
		return []*Table{next}, nil
	}
	last := merged[len(merged)-1]
	if next.FirstPage <= last.LastPage {
		return nil, fmt.Errorf("page %d arrived after page %d: tables must merge in ascending page order", next.FirstPage, last.LastPage)
	}
	if next.FirstPage == last.LastPage+1 && m.continues(last, next) {
		joined := m.join(last, next)
		m.logger.Info("merge.continuation",
			"pages", fmt.Sprintf("%d-%d", joined.FirstPage, joined.LastPage),
			"rows", len(joined.Rows),
		)
		merged[len(merged)-1] = joined
		return merged, nil
	}
	return append(merged, next), nil
}

// continues reports whether b is a continuation of a.
func (m *Merger) continues(a, b *Table) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	if !columnsCompatible(a.Columns, b.Columns) {
		return false
	}
	// A rollup row terminates a table; nothing continues after a total.
	if a.Rows[len(a.Rows)-1].Type == RowTypeRollup {
		return false
	}
	// A continuation page either starts straight into data or repeats the
	// header it continues. A fresh, different header means a new table.
	first := b.Rows[0]
	if first.Type == RowTypeHeader && !duplicatesHeader(first, a.Columns) {
		return false
	}
	return true
}

// join concatenates rows in page order over the wider column set, keeping
// exactly one copy of the header: a leading row on b that repeats a's
// column labels is discarded.
func (m *Merger) join(a, b *Table) *Table {
	columns := a.Columns
	if len(b.Columns) > len(columns) {
		columns = b.Columns
	}
	rows := make([]Row, 0, len(a.Rows)+len(b.Rows))
	for _, r := range a.Rows {
		rows = append(rows, realign(r, columns))
	}
	for i, r := range b.Rows {
		if i == 0 && r.Type == RowTypeHeader && duplicatesHeader(r, a.Columns) {
			continue
		}
		rows = append(rows, realign(r, columns))
	}
	return &Table{
		Columns:   columns,
		Rows:      rows,
		FirstPage: a.FirstPage,
		LastPage:  b.LastPage,
	}
}

// columnsCompatible accepts an exact label match or a prefix relation,
// which covers repeated headers that drop a trailing column.
func columnsCompatible(a, b []string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	for i, c := range short {
		if long[i] != c {
			return false
		}
	}
	return true
}

// duplicatesHeader reports whether a HEADER row's cell values repeat the
// given column labels.
func duplicatesHeader(r Row, columns []string) bool {
	matched := 0
	for _, c := range r.Cells {
		if c.Value == "" {
			continue
		}
		found := false
		for _, col := range columns {
			if c.Value == col {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		matched++
	}
	return matched > 0
}

// realign pads a row out to the wider column set, preserving cell order.
func realign(r Row, columns []string) Row {
	if len(r.Cells) == len(columns) {
		return r
	}
	cells := make([]Cell, len(columns))
	for i, col := range columns {
		v := ""
		if i < len(r.Cells) {
			v = r.Cells[i].Value
		}
		cells[i] = Cell{Column: col, Value: v}
	}
	return Row{Type: r.Type, Category: r.Category, Cells: cells}
}
