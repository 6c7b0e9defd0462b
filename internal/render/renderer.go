package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	_ "image/jpeg"

	"golang.org/x/image/tiff"

	"github.com/finforge/pdf2sheet/internal/common"
	"github.com/finforge/pdf2sheet/internal/document"
)

// Renderer rasterizes one document page to PNG at the configured DPI.
// PDF pages go through pdftoppm; raster inputs are re-encoded as PNG.
type Renderer struct {
	cfg    common.RenderConfig
	tools  common.ToolsConfig
	runner Runner
	logger *slog.Logger
}

func NewRenderer(cfg common.RenderConfig, tools common.ToolsConfig, runner Runner, logger *slog.Logger) *Renderer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{cfg: cfg, tools: tools, runner: runner, logger: logger}
}

// RenderPage returns the page as PNG bytes at full render resolution.
// Callers fit the result under the capability's byte ceiling separately.
func (r *Renderer) RenderPage(ctx context.Context, doc *document.Document, pageIndex int) ([]byte, error) {
	if doc.Raster {
		return r.readRaster(doc.Path)
	}

	tmpDir, err := os.MkdirTemp("", "p2s-render-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("render.tmpdir_cleanup_failed", "path", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	pageArg := fmt.Sprintf("%d", pageIndex)
	// pdftoppm -r <dpi> -png -f N -l N <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.tools.Pdftoppm,
		"-r", fmt.Sprintf("%d", r.cfg.DPI),
		"-png", "-f", pageArg, "-l", pageArg,
		doc.Path, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w (%s)", pageIndex, err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d", pageIndex)
	}
	return os.ReadFile(matches[0])
}

// readRaster loads an image file and normalizes it to PNG.
func (r *Renderer) readRaster(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		// image/jpeg and image/png register themselves; TIFF needs x/image.
		if img, err = tiff.Decode(bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("decode raster input: %w", err)
		}
		format = "tiff"
	}
	if format == "png" {
		return raw, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
