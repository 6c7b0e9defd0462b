// Package pipeline coordinates the whole extraction flow for one
// document: classification, per-page extraction with quality-gated
// vision fallback, incremental merging, checkpointing, export, and
// validation.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/finforge/pdf2sheet/internal/checkpoint"
	"github.com/finforge/pdf2sheet/internal/common"
	"github.com/finforge/pdf2sheet/internal/document"
	"github.com/finforge/pdf2sheet/internal/extract"
	"github.com/finforge/pdf2sheet/internal/table"
	"github.com/finforge/pdf2sheet/internal/validate"
)

// TextExtractor is the free extraction path.
type TextExtractor interface {
	Extract(ctx context.Context, doc *document.Document, page int) (*table.Table, extract.Stats, error)
}

// VisionExtractor is the paid extraction path. The int is the rotation
// correction applied before the capability call.
type VisionExtractor interface {
	Extract(ctx context.Context, doc *document.Document, page int) (*table.Table, int, error)
}

// Store persists per-document progress between runs.
type Store interface {
	Save(ctx context.Context, cp *checkpoint.Checkpoint) error
	Load(ctx context.Context, documentID string) (*checkpoint.Checkpoint, error)
	Clear(ctx context.Context, documentID string) error
}

// Workbook writes merged tables to a spreadsheet file.
type Workbook interface {
	WriteWorkbook(tables []*table.Table, path string) error
}

// Result summarizes one completed document.
type Result struct {
	Path       string
	OutputPath string
	ReportPath string
	Class      document.Class
	Pages      int
	Tables     []*table.Table
	Report     *validate.Report
	Resumed    bool
}

// Orchestrator runs the per-document pipeline. Pages are processed
// sequentially; page order is what the merger's continuation logic
// feeds on.
type Orchestrator struct {
	// Open resolves an input path to a document; swap it to feed
	// synthetic documents in.
	Open func(path string) (*document.Document, error)

	cfg        *common.Config
	classifier *document.Classifier
	text       TextExtractor
	gate       *extract.Gate
	vision     VisionExtractor
	merger     *table.Merger
	store      Store
	workbook   Workbook
	reporter   *validate.Reporter
	logger     *slog.Logger
}

func NewOrchestrator(
	cfg *common.Config,
	classifier *document.Classifier,
	text TextExtractor,
	vision VisionExtractor,
	store Store,
	workbook Workbook,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Open:       document.Open,
		cfg:        cfg,
		classifier: classifier,
		text:       text,
		gate:       extract.NewGate(cfg.Quality),
		vision:     vision,
		merger:     table.NewMerger(logger),
		store:      store,
		workbook:   workbook,
		reporter:   validate.NewReporter(logger),
		logger:     logger,
	}
}

// DocumentID is the stable checkpoint key for an input path.
func DocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:16])
}

// Run processes one document end to end and writes the workbook to
// outPath. Cancellation is honored at page boundaries: progress through
// the last completed page is checkpointed before ctx.Err() is returned.
func (o *Orchestrator) Run(ctx context.Context, path, outPath string) (*Result, error) {
	start := time.Now()

	doc, err := o.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	class := o.classifier.Classify(doc)
	doc.SetClass(class)
	o.logger.Info("pipeline.document_opened",
		"path", path,
		"pages", doc.PageCount(),
		"class", string(class),
	)

	docID := DocumentID(path)
	pageTables, startPage, resumed := o.resume(ctx, docID, doc.PageCount())

	merged, err := o.merger.Merge(pageTables)
	if err != nil {
		return nil, fmt.Errorf("remerge checkpoint: %w", err)
	}

	for page := startPage; page <= doc.PageCount(); page++ {
		if ctx.Err() != nil {
			o.saveProgress(docID, page-1, pageTables)
			return nil, ctx.Err()
		}

		tbl, err := o.extractPage(ctx, doc, page)
		if err != nil {
			if ctx.Err() != nil {
				o.saveProgress(docID, page-1, pageTables)
				return nil, ctx.Err()
			}
			return nil, err
		}

		pageTables = append(pageTables, tbl)
		merged, err = o.merger.Append(merged, tbl)
		if err != nil {
			return nil, fmt.Errorf("merge page %d: %w", page, err)
		}

		if page%o.cfg.Checkpoint.SaveEvery == 0 && page < doc.PageCount() {
			o.saveProgress(docID, page, pageTables)
		}
	}

	// Checkpoint before export: a failed write must not cost the
	// extraction work.
	o.saveProgress(docID, doc.PageCount(), pageTables)

	if err := o.workbook.WriteWorkbook(merged, outPath); err != nil {
		return nil, err
	}

	res := &Result{
		Path:       path,
		OutputPath: outPath,
		Class:      class,
		Pages:      doc.PageCount(),
		Tables:     merged,
		Resumed:    resumed,
	}

	if class == document.ClassText {
		texts := make([]string, doc.PageCount())
		for i, p := range doc.Pages {
			texts[i] = p.Text()
		}
		res.Report = o.reporter.Reconcile(path, texts, merged)
		res.ReportPath = reportPath(outPath)
		if err := o.reporter.WriteMarkdown(res.Report, res.ReportPath); err != nil {
			o.logger.Warn("pipeline.report_write_failed", "path", res.ReportPath, "error", err)
			res.ReportPath = ""
		}
	}

	if err := o.store.Clear(ctx, docID); err != nil {
		o.logger.Warn("pipeline.checkpoint_clear_failed", "document_id", docID, "error", err)
	}

	o.logger.Info("pipeline.document_done",
		"path", path,
		"output", outPath,
		"tables", len(merged),
		"resumed", resumed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// resume loads any checkpoint and returns the per-page tables extracted
// so far plus the next page to process. A corrupt checkpoint is treated
// as no checkpoint.
func (o *Orchestrator) resume(ctx context.Context, docID string, pageCount int) ([]*table.Table, int, bool) {
	cp, err := o.store.Load(ctx, docID)
	if err != nil {
		if errors.Is(err, common.ErrCheckpointCorrupt) {
			o.logger.Warn("pipeline.checkpoint_corrupt", "document_id", docID)
		} else {
			o.logger.Warn("pipeline.checkpoint_load_failed", "document_id", docID, "error", err)
		}
		return nil, 1, false
	}
	if cp == nil {
		return nil, 1, false
	}
	if cp.LastPageIndex >= pageCount {
		// stale checkpoint from a run that finished extraction but not
		// export; redo nothing, re-export everything
		o.logger.Info("pipeline.resume_complete_checkpoint",
			"document_id", docID,
			"last_page_index", cp.LastPageIndex,
		)
		return cp.Tables, pageCount + 1, true
	}
	o.logger.Info("pipeline.resuming",
		"document_id", docID,
		"last_page_index", cp.LastPageIndex,
		"tables", len(cp.Tables),
	)
	return cp.Tables, cp.LastPageIndex + 1, true
}

func (o *Orchestrator) saveProgress(docID string, lastPage int, tables []*table.Table) {
	if lastPage < 1 {
		return
	}
	// checkpoint writes use a fresh context so a canceled run still
	// persists its progress
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := o.store.Save(saveCtx, &checkpoint.Checkpoint{
		DocumentID:    docID,
		LastPageIndex: lastPage,
		Tables:        tables,
	})
	if err != nil {
		o.logger.Warn("pipeline.checkpoint_save_failed", "document_id", docID, "error", err)
	}
}

// extractPage routes one page. Text-classed documents take the text
// path and fall back to vision page by page when the quality gate
// rejects; image-classed documents go straight to vision. Vision
// failures degrade to an empty page table rather than aborting the
// document.
func (o *Orchestrator) extractPage(ctx context.Context, doc *document.Document, page int) (*table.Table, error) {
	if doc.Class() == document.ClassText {
		tbl, stats, err := o.text.Extract(ctx, doc, page)
		if err != nil {
			return nil, err
		}
		score := extract.ScoreQuality(tbl, stats, doc.Pages[page-1].Text(), o.cfg.Quality)
		if o.gate.Accepts(score) {
			return tbl, nil
		}
		o.logger.Info("pipeline.quality_fallback",
			"path", doc.Path,
			"page", page,
			"issues", score.String(),
		)
	}

	tbl, rotation, err := o.vision.Extract(ctx, doc, page)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		o.logger.Warn("pipeline.vision_failed",
			"path", doc.Path,
			"page", page,
			"error", err,
		)
		return &table.Table{FirstPage: page, LastPage: page}, nil
	}
	doc.Pages[page-1].Rotation = rotation
	return tbl, nil
}

func reportPath(outPath string) string {
	ext := filepath.Ext(outPath)
	return outPath[:len(outPath)-len(ext)] + ".report.md"
}
