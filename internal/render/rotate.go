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
	"strconv"
	"strings"
)

// OSD is an orientation-detection reading: the clockwise angle that would
// correct the page, and the detector's confidence in it.
type OSD struct {
	Angle      int
	Confidence float64
}

// Detector detects page orientation from a rendered PNG.
type Detector interface {
	DetectOrientation(ctx context.Context, pngBytes []byte) (OSD, error)
}

// TesseractDetector shells out to tesseract's orientation-and-script
// detection mode (--psm 0) and parses its report.
type TesseractDetector struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func NewTesseractDetector(bin string, runner Runner, logger *slog.Logger) *TesseractDetector {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractDetector{bin: bin, runner: runner, logger: logger}
}

func (d *TesseractDetector) DetectOrientation(ctx context.Context, pngBytes []byte) (OSD, error) {
	tmpDir, err := os.MkdirTemp("", "p2s-osd-*")
	if err != nil {
		return OSD{}, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			d.logger.Warn("osd.tmpdir_cleanup_failed", "path", tmpDir, "error", err)
		}
	}()

	imgPath := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(imgPath, pngBytes, 0o600); err != nil {
		return OSD{}, err
	}

	out, errb, err := d.runner.Run(ctx, d.bin, imgPath, "stdout", "--psm", "0")
	if err != nil {
		return OSD{}, fmt.Errorf("tesseract osd: %w (%s)", err, truncate(string(errb), 512))
	}
	// OSD lines also land on stderr with some tesseract builds.
	return ParseOSD(string(out) + "\n" + string(errb)), nil
}

// ParseOSD reads the Rotate / Orientation confidence lines out of a
// tesseract --psm 0 report.
func ParseOSD(report string) OSD {
	var osd OSD
	for _, line := range strings.Split(report, "\n") {
		if after, ok := strings.CutPrefix(strings.TrimSpace(line), "Rotate:"); ok {
			if v, err := strconv.Atoi(strings.TrimSpace(after)); err == nil {
				osd.Angle = v
			}
		}
		if after, ok := strings.CutPrefix(strings.TrimSpace(line), "Orientation confidence:"); ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(after), 64); err == nil {
				osd.Confidence = v
			}
		}
	}
	return osd
}

// Corrector applies conservative rotation correction: a detected angle is
// applied only when non-zero and above the confidence threshold, since
// low-confidence readings are more often false positives than real
// rotations. Detection errors degrade to "no rotation".
type Corrector struct {
	detector  Detector
	threshold float64
	logger    *slog.Logger
}

func NewCorrector(detector Detector, threshold float64, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{detector: detector, threshold: threshold, logger: logger}
}

// Correct returns the (possibly rotated) PNG and the applied angle, one of
// 0/90/180/270 clockwise.
func (c *Corrector) Correct(ctx context.Context, pngBytes []byte) ([]byte, int) {
	osd, err := c.detector.DetectOrientation(ctx, pngBytes)
	if err != nil {
		c.logger.Warn("rotate.detect_failed", "error", err)
		return pngBytes, 0
	}
	angle := ((osd.Angle % 360) + 360) % 360
	if angle == 0 || osd.Confidence <= c.threshold {
		return pngBytes, 0
	}

	rotated, err := rotatePNG(pngBytes, angle)
	if err != nil {
		c.logger.Warn("rotate.apply_failed", "angle", angle, "error", err)
		return pngBytes, 0
	}
	c.logger.Info("rotate.applied", "angle", angle, "confidence", osd.Confidence)
	return rotated, angle
}

// rotatePNG rotates clockwise by 90, 180, or 270 degrees.
func rotatePNG(pngBytes []byte, angle int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	var dst *image.RGBA
	switch angle {
	case 90:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(h-1-y, x, src.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(w-1-x, h-1-y, src.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	case 270:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(y, w-1-x, src.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported rotation angle %d", angle)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
