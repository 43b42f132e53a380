// Package pdfdoc renders PDF pages as plain text.
package pdfdoc

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ledongthuc/pdf"
)

// ErrClosed is returned by operations on a closed document.
var ErrClosed = errors.New("document closed")

// ErrPageRange is returned for page indices outside [1, PageCount].
var ErrPageRange = errors.New("page out of range")

// Document is an opened PDF. It is safe for concurrent use.
type Document struct {
	mu     sync.Mutex
	r      *pdf.Reader
	pages  int
	closed bool
}

// Open parses the PDF cross-reference table from ra. The parser panics on
// some malformed inputs; those panics come back as errors.
func Open(ra io.ReaderAt, size int64) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	n := r.NumPage()
	if n < 1 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return &Document{r: r, pages: n}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pages }

// RenderPage returns the plain text of the 1-based page i.
func (d *Document) RenderPage(i int) (text string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ErrClosed
	}
	if i < 1 || i > d.pages {
		return "", fmt.Errorf("%w: %d of %d", ErrPageRange, i, d.pages)
	}

	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("render page %d: %v", i, r)
		}
	}()

	p := d.r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err = p.GetPlainText(fonts)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", i, err)
	}
	return text, nil
}

// Close drops the parsed document. Safe to call more than once.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.r = nil
	return nil
}
