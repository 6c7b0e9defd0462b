package document

import (
	"os"
	"path/filepath"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/finforge/pdf2sheet/internal/common"
)

// Class tags a document as text-based or image-based. It is set once at
// classification time and immutable afterwards.
type Class string

const (
	ClassText  Class = "TEXT"
	ClassImage Class = "IMAGE"
)

// Document is one input file: its source path, ordered pages, and its
// classification tag.
type Document struct {
	Path   string
	Pages  []*Page
	Raster bool

	class  Class
	closer *os.File
	reader *lpdf.Reader
}

// Page is one 1-based page of a document. Rotation is set once by the
// rotation corrector and describes degrees applied to the rendered image.
type Page struct {
	Index    int
	Rotation int

	doc  *Document
	text *string
}

var rasterExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".tif": {}, ".tiff": {},
}

// Open validates the input and builds the page list. PDFs are validated
// through pdfcpu and read through ledongthuc/pdf for their text layer;
// raster images become single-page documents with no text layer. Any
// failure to open is ErrDocumentUnreadable and aborts the document.
func Open(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := rasterExts[ext]; ok {
		if _, err := os.Stat(path); err != nil {
			return nil, common.NewAppError("DOC_OPEN", "cannot stat image file", common.ErrDocumentUnreadable)
		}
		d := &Document{Path: path, Raster: true}
		d.Pages = []*Page{{Index: 1, doc: d}}
		return d, nil
	}

	pageCount, err := api.PageCountFile(path)
	if err != nil || pageCount < 1 {
		return nil, common.NewAppError("DOC_OPEN", "pdfcpu rejected file", common.ErrDocumentUnreadable)
	}

	f, reader, err := lpdf.Open(path)
	if err != nil {
		return nil, common.NewAppError("DOC_OPEN", "cannot read pdf", common.ErrDocumentUnreadable)
	}

	d := &Document{Path: path, closer: f, reader: reader}
	d.Pages = make([]*Page, pageCount)
	for i := 0; i < pageCount; i++ {
		d.Pages[i] = &Page{Index: i + 1, doc: d}
	}
	return d, nil
}

// NewFromText builds an in-memory document whose pages carry the given
// text layers, for exercising classification and pipeline routing
// without a file on disk.
func NewFromText(path string, pages []string) *Document {
	d := &Document{Path: path}
	for i := range pages {
		t := pages[i]
		d.Pages = append(d.Pages, &Page{Index: i + 1, doc: d, text: &t})
	}
	return d
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Class returns the classification tag, empty until SetClass.
func (d *Document) Class() Class {
	return d.class
}

// SetClass records the classification. First write wins; the tag is
// immutable after classification time.
func (d *Document) SetClass(c Class) {
	if d.class == "" {
		d.class = c
	}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Text returns the page's raw text layer. Raster pages and unreadable
// pages yield an empty string; the text layer is an input to
// classification and validation, not a hard requirement.
func (p *Page) Text() string {
	if p.text != nil {
		return *p.text
	}
	text := ""
	if p.doc != nil && p.doc.reader != nil {
		page := p.doc.reader.Page(p.Index)
		if !page.V.IsNull() {
			if s, err := page.GetPlainText(nil); err == nil {
				text = s
			}
		}
	}
	p.text = &text
	return text
}
