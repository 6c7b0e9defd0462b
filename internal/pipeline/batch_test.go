package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finforge/pdf2sheet/internal/document"
	"github.com/finforge/pdf2sheet/internal/table"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestDiscoverFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.pdf"))
	touch(t, filepath.Join(dir, "a.PDF"))
	touch(t, filepath.Join(dir, "scan.jpeg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".hidden.pdf"))
	touch(t, filepath.Join(dir, "sub", "c.pdf"))
	touch(t, filepath.Join(dir, ".git", "d.pdf"))

	flat, err := Discover(dir, false)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.PDF"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "scan.jpeg"),
	}, flat)

	deep, err := Discover(dir, true)
	require.NoError(t, err)
	require.Contains(t, deep, filepath.Join(dir, "sub", "c.pdf"))
	require.NotContains(t, deep, filepath.Join(dir, ".git", "d.pdf"))
}

func TestProcessAllRunsEveryDocument(t *testing.T) {
	cfg := testConfig()
	text := &fakeText{tables: map[int]*table.Table{
		1: detailTable(t, 1, "Rent", "1200"),
	}}
	wb := &memWorkbook{}
	o := NewOrchestrator(cfg, document.NewClassifier(cfg.Classify, nil), text, &fakeVision{}, newMemStore(), wb, nil)
	o.Open = func(path string) (*document.Document, error) {
		return document.NewFromText(path, []string{pageText}), nil
	}

	b := NewBatch(o, 2, nil)
	results := b.ProcessAll(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf"}, "out")

	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Err, r.Path)
		require.NotNil(t, r.Result)
		require.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}[i], r.Path)
	}
	require.Equal(t, filepath.Join("out", "b.xlsx"), results[1].Result.OutputPath)
}

func TestProcessAllOneFailureDoesNotStopOthers(t *testing.T) {
	cfg := testConfig()
	text := &fakeText{tables: map[int]*table.Table{
		1: detailTable(t, 1, "Rent", "1200"),
	}}
	o := NewOrchestrator(cfg, document.NewClassifier(cfg.Classify, nil), text, &fakeVision{}, newMemStore(), &memWorkbook{}, nil)
	o.Open = func(path string) (*document.Document, error) {
		if path == "bad.pdf" {
			return nil, os.ErrNotExist
		}
		return document.NewFromText(path, []string{pageText}), nil
	}

	b := NewBatch(o, 1, nil)
	results := b.ProcessAll(context.Background(), []string{"a.pdf", "bad.pdf", "c.pdf"}, "")

	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	require.NoError(t, results[2].Err)
}

func TestProcessAllCanceledContextMarksRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig()
	o := NewOrchestrator(cfg, document.NewClassifier(cfg.Classify, nil), &fakeText{}, &fakeVision{}, newMemStore(), &memWorkbook{}, nil)
	o.Open = func(path string) (*document.Document, error) {
		return document.NewFromText(path, []string{pageText}), nil
	}

	b := NewBatch(o, 1, nil)
	results := b.ProcessAll(ctx, []string{"a.pdf", "b.pdf"}, "")
	require.Len(t, results, 2)
	for _, r := range results {
		require.Error(t, r.Err)
	}
}
