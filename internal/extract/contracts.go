package extract

import (
	"context"

	"github.com/finforge/pdf2sheet/internal/document"
)

// PageSource supplies the layout-preserving text of one page, so the text
// extractor can be exercised without poppler installed.
type PageSource interface {
	LayoutText(ctx context.Context, path string, page int) (string, error)
}

// PageImager turns one document page into PNG bytes ready for the vision
// capability: rendered, rotation-corrected, and fitted under the image
// byte ceiling.
type PageImager interface {
	PageImage(ctx context.Context, doc *document.Document, page int) ([]byte, int, error)
}

// Model is the vision capability consumed by the vision extractor.
type Model interface {
	Complete(ctx context.Context, pngBytes []byte, prompt string) (string, error)
}
