package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEnforcesRectangularInvariant(t *testing.T) {
	cols := []string{"Item", "2022", "2023"}
	good := MakeRow(RowTypeDetail, "Income", cols, []string{"Rent", "1200", "1250"})

	tbl, err := New(cols, []Row{good}, 1)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)

	bad := Row{Type: RowTypeDetail, Cells: []Cell{{Column: "Item", Value: "Rent"}}}
	_, err = New(cols, []Row{good, bad}, 1)
	require.Error(t, err)

	mislabeled := Row{Type: RowTypeDetail, Cells: []Cell{
		{Column: "Item", Value: "Rent"},
		{Column: "2023", Value: "1200"},
		{Column: "2022", Value: "1250"},
	}}
	_, err = New(cols, []Row{mislabeled}, 1)
	require.Error(t, err)
}

func TestMakeRowPadsAndTruncates(t *testing.T) {
	cols := []string{"Item", "2022", "2023"}

	short := MakeRow(RowTypeDetail, "", cols, []string{"Rent"})
	require.Len(t, short.Cells, 3)
	require.Equal(t, "", short.Cells[2].Value)

	long := MakeRow(RowTypeDetail, "", cols, []string{"Rent", "1", "2", "3"})
	require.Len(t, long.Cells, 3)
	require.Equal(t, "2", long.Cells[2].Value)
}

func TestClassifyRow(t *testing.T) {
	require.Equal(t, RowTypeRollup, ClassifyRow("Total Expenses", []string{"1,234", "2,345"}))
	require.Equal(t, RowTypeRollup, ClassifyRow("Subtotal", nil))
	require.Equal(t, RowTypeHeader, ClassifyRow("Administrative Expenses", []string{"", ""}))
	require.Equal(t, RowTypeDetail, ClassifyRow("Parking", []string{"500", "525"}))
	require.Equal(t, RowTypeRollup, ClassifyRow("Net Operating Income (NOI)", []string{"9,000"}))
}

func TestNumericCells(t *testing.T) {
	cols := []string{"Item", "2022"}
	rows := []Row{
		MakeRow(RowTypeDetail, "", cols, []string{"Rent", "1200"}),
		MakeRow(RowTypeHeader, "", cols, []string{"Income", ""}),
	}
	tbl, err := New(cols, rows, 1)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.NumericCells())
}
