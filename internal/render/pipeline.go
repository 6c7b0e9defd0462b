package render

import (
	"context"

	"github.com/finforge/pdf2sheet/internal/document"
)

// ImagePipeline prepares one page for the vision capability: render at
// the configured DPI, correct rotation, then fit under the byte ceiling.
// Resizing happens after rotation so the ceiling applies to the image
// actually sent.
type ImagePipeline struct {
	renderer  *Renderer
	corrector *Corrector
	maxBytes  int
}

func NewImagePipeline(renderer *Renderer, corrector *Corrector, maxBytes int) *ImagePipeline {
	return &ImagePipeline{renderer: renderer, corrector: corrector, maxBytes: maxBytes}
}

// PageImage returns the prepared PNG and the rotation angle applied.
func (p *ImagePipeline) PageImage(ctx context.Context, doc *document.Document, page int) ([]byte, int, error) {
	png, err := p.renderer.RenderPage(ctx, doc, page)
	if err != nil {
		return nil, 0, err
	}
	png, angle := p.corrector.Correct(ctx, png)
	png, err = FitImage(png, p.maxBytes)
	if err != nil {
		return nil, angle, err
	}
	return png, angle, nil
}
