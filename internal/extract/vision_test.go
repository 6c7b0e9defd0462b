package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finforge/pdf2sheet/internal/table"
)

const sampleCSV = `Row_Type,Category,Item,2022,2023
HEADER,Income,Income,,
DETAIL,Income,Rent,"1,200","1,250"
DETAIL,Income,Parking,100,110
ROLLUP,Income,Total Income,"1,300","1,360"`

func TestParseDelimitedBasicTable(t *testing.T) {
	tbl, err := ParseDelimited(sampleCSV, 4)
	require.NoError(t, err)

	require.Equal(t, []string{"Item", "2022", "2023"}, tbl.Columns)
	require.Len(t, tbl.Rows, 4)
	require.Equal(t, 4, tbl.FirstPage)

	require.Equal(t, table.RowTypeHeader, tbl.Rows[0].Type)
	require.Equal(t, table.RowTypeDetail, tbl.Rows[1].Type)
	require.Equal(t, table.RowTypeRollup, tbl.Rows[3].Type)

	require.Equal(t, "Income", tbl.Rows[1].Category)
	require.Equal(t, "1200", tbl.Rows[1].Cells[1].Value)
	require.Equal(t, "1360", tbl.Rows[3].Cells[2].Value)
	require.NoError(t, tbl.CheckRectangular())
}

func TestParseDelimitedStripsMarkdownFences(t *testing.T) {
	fenced := "```csv\n" + sampleCSV + "\n```"
	tbl, err := ParseDelimited(fenced, 1)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 4)
}

func TestParseDelimitedIsDeterministic(t *testing.T) {
	first, err := ParseDelimited(sampleCSV, 1)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ParseDelimited(sampleCSV, 1)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestParseDelimitedNormalizesParenNegatives(t *testing.T) {
	csv := `Row_Type,Category,Item,2022
DETAIL,Expenses,Repairs,"(1,234)"
DETAIL,Expenses,Misc,( 297)`
	tbl, err := ParseDelimited(csv, 1)
	require.NoError(t, err)
	require.Equal(t, "-1234", tbl.Rows[0].Cells[1].Value)
	require.Equal(t, "-297", tbl.Rows[1].Cells[1].Value)
}

func TestParseDelimitedBlankCellsStayBlank(t *testing.T) {
	csv := `Row_Type,Category,Item,2022,2023
DETAIL,,Rent,1200,`
	tbl, err := ParseDelimited(csv, 1)
	require.NoError(t, err)
	require.Equal(t, "", tbl.Rows[0].Cells[2].Value)
}

func TestParseDelimitedSalvagesMalformedRows(t *testing.T) {
	// stray quote plus trailing delimiter: looser rules keep the row
	csv := `Row_Type,Category,Item,2022
DETAIL,Income,"Rent,1200,`
	tbl, err := ParseDelimited(csv, 1)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	require.NoError(t, tbl.CheckRectangular())
}

func TestParseDelimitedInfersRowTypeWhenTagMissing(t *testing.T) {
	csv := `Item,2022
Total Expenses,900
Insurance,300`
	tbl, err := ParseDelimited(csv, 1)
	require.NoError(t, err)
	require.Equal(t, table.RowTypeRollup, tbl.Rows[0].Type)
	require.Equal(t, table.RowTypeDetail, tbl.Rows[1].Type)
}

func TestParseDelimitedEmptyResponse(t *testing.T) {
	for _, content := range []string{"", "   ", "```\n```"} {
		tbl, err := ParseDelimited(content, 2)
		require.NoError(t, err)
		require.True(t, tbl.Empty())
		require.Equal(t, 2, tbl.FirstPage)
	}
}

func TestRepairCellParens(t *testing.T) {
	cases := map[string]string{
		"( 297)":  "(297)",
		"((123)":  "(123)",
		"( 4410":  "(4410)",
		"123)":    "(123)",
		"-3.34% (": "-3.34%",
		"1,200":   "1,200",
	}
	for in, want := range cases {
		require.Equal(t, want, repairCellParens(in), in)
	}
}

func TestRepairRowParensCascade(t *testing.T) {
	in := []string{"10,947 (", "3,094)(", "578)", "173"}
	out := repairRowParens(in)
	require.Equal(t, []string{"10,947", "(3,094)", "(578)", "173"}, out)
}

func TestRepairRowParensNoChange(t *testing.T) {
	in := []string{"Rent", "1,200", "(300)"}
	require.Equal(t, in, repairRowParens(in))
}

func TestPromptRequestsStructuredRows(t *testing.T) {
	require.True(t, strings.Contains(extractionPrompt, "Row_Type"))
	require.True(t, strings.Contains(extractionPrompt, "ROLLUP"))
	require.True(t, strings.Contains(extractionPrompt, "CSV"))
}
