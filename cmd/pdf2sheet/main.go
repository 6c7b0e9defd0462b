package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/finforge/pdf2sheet/internal/checkpoint"
	"github.com/finforge/pdf2sheet/internal/common"
	"github.com/finforge/pdf2sheet/internal/document"
	"github.com/finforge/pdf2sheet/internal/export"
	"github.com/finforge/pdf2sheet/internal/extract"
	"github.com/finforge/pdf2sheet/internal/pipeline"
	"github.com/finforge/pdf2sheet/internal/render"
	"github.com/finforge/pdf2sheet/internal/vision"
)

func main() {
	var (
		outDir      = flag.String("out", "", "directory for output workbooks (default: beside each input)")
		recursive   = flag.Bool("recursive", false, "descend into subdirectories when the input is a directory")
		forceVision = flag.Bool("force-vision", false, "route every page through vision extraction")
		workers     = flag.Int("workers", 2, "documents processed concurrently")
		envFile     = flag.String("env", "", "load environment from this file")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: pdf2sheet [flags] <file-or-directory>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			logger.Error("load env file", "path", *envFile, "error", err)
			os.Exit(2)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := common.LoadConfig()
	cfg.Classify.ForceVision = *forceVision
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if cfg.Vision.APIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY is not set; vision extraction will fail and affected pages will come back empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := checkpoint.NewStore(cfg.Checkpoint, logger)
	if err != nil {
		logger.Error("open checkpoint store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	runner := render.ExecRunner{}
	renderer := render.NewRenderer(cfg.Render, cfg.Tools, runner, logger)
	detector := render.NewTesseractDetector(cfg.Tools.Tesseract, runner, logger)
	corrector := render.NewCorrector(detector, cfg.Render.RotationConfidence, logger)
	imager := render.NewImagePipeline(renderer, corrector, cfg.Render.MaxImageBytes)

	client := vision.NewClient(cfg.Vision, logger)
	caller := vision.NewCaller(client, cfg.Vision.Retries, cfg.Vision.Backoff, logger)

	source := extract.NewPdftotextSource(cfg.Tools.Pdftotext, runner)
	textExtractor := extract.NewTextExtractor(source, logger)
	visionExtractor := extract.NewVisionExtractor(imager, caller, logger)

	orch := pipeline.NewOrchestrator(
		cfg,
		document.NewClassifier(cfg.Classify, logger),
		textExtractor,
		visionExtractor,
		store,
		export.NewWriter(logger),
		logger,
	)

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			logger.Error("create output directory", "path", *outDir, "error", err)
			os.Exit(1)
		}
	}

	start := time.Now()
	info, err := os.Stat(input)
	if err != nil {
		logger.Error("stat input", "path", input, "error", err)
		os.Exit(1)
	}

	var results []pipeline.DocResult
	if info.IsDir() {
		paths, err := pipeline.Discover(input, *recursive)
		if err != nil {
			logger.Error("discover inputs", "path", input, "error", err)
			os.Exit(1)
		}
		if len(paths) == 0 {
			logger.Error("no processable files found", "path", input)
			os.Exit(1)
		}
		logger.Info("batch.start", "documents", len(paths), "workers", *workers)
		batch := pipeline.NewBatch(orch, *workers, logger)
		results = batch.ProcessAll(ctx, paths, *outDir)
	} else {
		out := pipeline.OutputPath(input, *outDir)
		res, err := orch.Run(ctx, input, out)
		results = []pipeline.DocResult{{Path: input, Result: res, Err: err}}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if r.Result.Report != nil {
			logger.Info("document.validated",
				"path", r.Path,
				"accuracy", fmt.Sprintf("%.4f", r.Result.Report.Accuracy),
				"discrepancies", len(r.Result.Report.Discrepancies),
			)
		}
	}

	logger.Info("run.done",
		"documents", len(results),
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if failed > 0 {
		os.Exit(1)
	}
}
