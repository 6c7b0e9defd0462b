package document

import (
	"log/slog"
	"strings"

	"github.com/finforge/pdf2sheet/internal/common"
)

// Classifier decides text-based vs image-based per document by sampling
// the leading pages' text layers. It is read-only: classification is a
// pure function of the sampled pages' content.
type Classifier struct {
	cfg    common.ClassifyConfig
	logger *slog.Logger
}

func NewClassifier(cfg common.ClassifyConfig, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{cfg: cfg, logger: logger}
}

// Classify samples up to SamplePages leading pages; if any yields trimmed
// text longer than MinTextLen the document is TEXT, otherwise IMAGE. The
// force-vision override selects IMAGE unconditionally.
func (c *Classifier) Classify(doc *Document) Class {
	if c.cfg.ForceVision {
		c.logger.Info("classify.forced_vision", "path", doc.Path)
		return ClassImage
	}
	if doc.Raster {
		return ClassImage
	}

	sample := c.cfg.SamplePages
	if sample > doc.PageCount() {
		sample = doc.PageCount()
	}
	for i := 0; i < sample; i++ {
		text := strings.TrimSpace(doc.Pages[i].Text())
		if len(text) > c.cfg.MinTextLen {
			c.logger.Debug("classify.text_layer_found",
				"path", doc.Path,
				"page", i+1,
				"text_len", len(text),
			)
			return ClassText
		}
	}
	return ClassImage
}
