package checkpoint

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finforge/pdf2sheet/internal/common"
	"github.com/finforge/pdf2sheet/internal/table"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := NewStore(common.CheckpointConfig{Dir: dir, SaveEvery: 10}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, dir
}

func pageTable(t *testing.T, page int) *table.Table {
	t.Helper()
	cols := []string{"Item", "2022"}
	tbl, err := table.New(cols, []table.Row{
		table.MakeRow(table.RowTypeDetail, "", cols, []string{"Rent", "1200"}),
	}, page)
	require.NoError(t, err)
	return tbl
}

func TestSaveLoadRoundtrip(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()

	cp := &Checkpoint{
		DocumentID:    "doc-1",
		LastPageIndex: 10,
		Tables:        []*table.Table{pageTable(t, 1), pageTable(t, 2)},
	}
	require.NoError(t, st.Save(ctx, cp))

	got, err := st.Load(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "doc-1", got.DocumentID)
	require.Equal(t, 10, got.LastPageIndex)
	require.Len(t, got.Tables, 2)
	require.Equal(t, cp.Tables[0].Columns, got.Tables[0].Columns)
	require.Equal(t, "1200", got.Tables[0].Rows[0].Cells[1].Value)
}

func TestLoadMissingIsNil(t *testing.T) {
	st, _ := testStore(t)

	got, err := st.Load(context.Background(), "never-saved")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveOverwritesPrevious(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, &Checkpoint{
		DocumentID: "doc-1", LastPageIndex: 10,
		Tables: []*table.Table{pageTable(t, 1)},
	}))
	require.NoError(t, st.Save(ctx, &Checkpoint{
		DocumentID: "doc-1", LastPageIndex: 20,
		Tables: []*table.Table{pageTable(t, 1), pageTable(t, 2)},
	}))

	got, err := st.Load(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, 20, got.LastPageIndex)
	require.Len(t, got.Tables, 2)
}

func TestCorruptPayloadIsCheckpointCorrupt(t *testing.T) {
	st, dir := testStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, &Checkpoint{
		DocumentID: "doc-1", LastPageIndex: 10,
		Tables: []*table.Table{pageTable(t, 1)},
	}))

	db, err := sql.Open("sqlite", filepath.Join(dir, "checkpoints.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`UPDATE checkpoints SET payload = '{"truncated' WHERE document_id = ?`, "doc-1")
	require.NoError(t, err)

	got, err := st.Load(ctx, "doc-1")
	require.Nil(t, got)
	require.ErrorIs(t, err, common.ErrCheckpointCorrupt)
}

func TestSchemaViolationIsCheckpointCorrupt(t *testing.T) {
	st, dir := testStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, &Checkpoint{
		DocumentID: "doc-1", LastPageIndex: 10,
		Tables: []*table.Table{pageTable(t, 1)},
	}))

	db, err := sql.Open("sqlite", filepath.Join(dir, "checkpoints.db"))
	require.NoError(t, err)
	defer db.Close()
	// valid JSON, wrong shape
	_, err = db.Exec(`UPDATE checkpoints SET payload = '{"document_id": "doc-1"}' WHERE document_id = ?`, "doc-1")
	require.NoError(t, err)

	got, err := st.Load(ctx, "doc-1")
	require.Nil(t, got)
	require.ErrorIs(t, err, common.ErrCheckpointCorrupt)
}

func TestClearRemovesCheckpoint(t *testing.T) {
	st, _ := testStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, &Checkpoint{
		DocumentID: "doc-1", LastPageIndex: 10,
		Tables: []*table.Table{pageTable(t, 1)},
	}))
	require.NoError(t, st.Clear(ctx, "doc-1"))

	got, err := st.Load(ctx, "doc-1")
	require.NoError(t, err)
	require.Nil(t, got)
}
