package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DocResult pairs one input document with its outcome.
type DocResult struct {
	Path   string
	Result *Result
	Err    error
}

// Batch fans independent documents out over a bounded worker pool.
// Concurrency lives here only; each document's pages stay sequential
// inside the orchestrator.
type Batch struct {
	orch    *Orchestrator
	workers int
	logger  *slog.Logger
}

func NewBatch(orch *Orchestrator, workers int, logger *slog.Logger) *Batch {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{orch: orch, workers: workers, logger: logger}
}

var inputExts = map[string]struct{}{
	".pdf": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".tif": {}, ".tiff": {},
}

// Discover lists the processable files under root. With recursive false
// only root's direct children are considered. Hidden files and
// directories are skipped.
func Discover(root string, recursive bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || !recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := inputExts[strings.ToLower(filepath.Ext(name))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ProcessAll runs every path through the orchestrator, at most workers
// documents in flight. Results come back in input order; one failed
// document never stops the others.
func (b *Batch) ProcessAll(ctx context.Context, paths []string, outDir string) []DocResult {
	results := make([]DocResult, len(paths))

	type job struct {
		idx  int
		path string
	}
	ch := make(chan job)
	var wg sync.WaitGroup

	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range ch {
				out := OutputPath(j.path, outDir)
				res, err := b.orch.Run(ctx, j.path, out)
				if err != nil {
					b.logger.Error("batch.document_failed",
						"worker_id", workerID,
						"path", j.path,
						"error", err,
					)
				}
				results[j.idx] = DocResult{Path: j.path, Result: res, Err: err}
			}
		}(w + 1)
	}

	for i, p := range paths {
		select {
		case ch <- job{idx: i, path: p}:
		case <-ctx.Done():
			// unsent jobs record the cancellation; in-flight documents
			// checkpoint and stop at their next page boundary
			for k := i; k < len(paths); k++ {
				if results[k].Path == "" {
					results[k] = DocResult{Path: paths[k], Err: ctx.Err()}
				}
			}
			close(ch)
			wg.Wait()
			return results
		}
	}
	close(ch)
	wg.Wait()
	return results
}

// OutputPath maps an input file to its workbook path, either beside the
// input or under outDir when set.
func OutputPath(inPath, outDir string) string {
	base := filepath.Base(inPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)] + ".xlsx"
	if outDir == "" {
		return filepath.Join(filepath.Dir(inPath), name)
	}
	return filepath.Join(outDir, name)
}
