package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finforge/pdf2sheet/internal/document"
	"github.com/finforge/pdf2sheet/internal/table"
)

type fakeSource struct {
	text string
	err  error
}

func (f fakeSource) LayoutText(context.Context, string, int) (string, error) {
	return f.text, f.err
}

const layoutPage = `
Operating Statement

Item                      2022        2023
Income
Rent                      1,200       1,250
Parking                   100         110
Total Income              1,300       1,360
`

func TestTextExtractorParsesLayoutColumns(t *testing.T) {
	e := NewTextExtractor(fakeSource{text: layoutPage}, nil)
	doc := &document.Document{Path: "stmt.pdf"}

	tbl, stats, err := e.Extract(context.Background(), doc, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Item", "2022", "2023"}, tbl.Columns)
	require.Len(t, tbl.Rows, 4)
	require.Zero(t, stats.RaggedLines)

	require.Equal(t, table.RowTypeHeader, tbl.Rows[0].Type)
	require.Equal(t, "Income", tbl.Rows[0].Cells[0].Value)
	require.Equal(t, table.RowTypeDetail, tbl.Rows[1].Type)
	require.Equal(t, "Income", tbl.Rows[1].Category)
	require.Equal(t, "1200", tbl.Rows[1].Cells[1].Value)
	require.Equal(t, table.RowTypeRollup, tbl.Rows[3].Type)
	require.NoError(t, tbl.CheckRectangular())
}

func TestTextExtractorCountsRaggedLines(t *testing.T) {
	ragged := `Item          2022    2023
Rent          1,200
Parking       100     110`
	e := NewTextExtractor(fakeSource{text: ragged}, nil)
	doc := &document.Document{Path: "stmt.pdf"}

	tbl, stats, err := e.Extract(context.Background(), doc, 1)
	require.NoError(t, err)
	require.Equal(t, 2, stats.DataLines)
	require.Equal(t, 1, stats.RaggedLines)
	require.NoError(t, tbl.CheckRectangular())
}

func TestTextExtractorEmptyPage(t *testing.T) {
	e := NewTextExtractor(fakeSource{text: "  \n  "}, nil)
	doc := &document.Document{Path: "stmt.pdf"}

	tbl, _, err := e.Extract(context.Background(), doc, 3)
	require.NoError(t, err)
	require.True(t, tbl.Empty())
	require.Equal(t, 3, tbl.FirstPage)
}

func TestTextExtractorToolFailureYieldsEmptyTable(t *testing.T) {
	e := NewTextExtractor(fakeSource{err: context.DeadlineExceeded}, nil)
	doc := &document.Document{Path: "stmt.pdf"}

	tbl, _, err := e.Extract(context.Background(), doc, 1)
	require.NoError(t, err)
	require.True(t, tbl.Empty())
}
