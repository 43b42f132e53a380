package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/x7dl8p/novel-reader/internal/pdfdoc"
	"github.com/x7dl8p/novel-reader/internal/reader"
)

func init() {
	Register(PDF, "PDF", []string{".pdf"}, func() Backend { return NewPDF() })
}

// PDFDocument is the page renderer the PDF backend drives. Pages are
// numbered from 1 to PageCount. *pdfdoc.Document implements it.
type PDFDocument interface {
	PageCount() int
	RenderPage(i int) (string, error)
	Close() error
}

// OpenPDFFunc opens a PDF document.
type OpenPDFFunc func(ra io.ReaderAt, size int64) (PDFDocument, error)

// PDFBackend presents every page as a chapter addressed by its 1-based
// page number.
type PDFBackend struct {
	open OpenPDFFunc

	mu       sync.Mutex
	doc      PDFDocument
	pages    int
	page     int
	rendered string
	disposed bool
}

// NewPDF creates a PDF backend rendering with pdfdoc.
func NewPDF() *PDFBackend {
	return NewPDFWith(func(ra io.ReaderAt, size int64) (PDFDocument, error) {
		d, err := pdfdoc.Open(ra, size)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// NewPDFWith creates a PDF backend over a custom document opener.
func NewPDFWith(open OpenPDFFunc) *PDFBackend {
	return &PDFBackend{open: open}
}

func (b *PDFBackend) Kind() Kind { return PDF }

func (b *PDFBackend) Load(ctx context.Context, f File) (LoadResult, error) {
	data, err := readAll(ctx, f)
	if err != nil {
		return LoadResult{}, err
	}
	doc, err := b.open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return LoadResult{}, reader.NewLoadError(reader.CorruptDocument, f.Name(), err)
	}
	n := doc.PageCount()
	if n < 1 {
		doc.Close()
		return LoadResult{}, reader.NewLoadError(reader.CorruptDocument, f.Name(), fmt.Errorf("document has no pages"))
	}
	first, err := doc.RenderPage(1)
	if err != nil {
		doc.Close()
		return LoadResult{}, reader.NewLoadError(reader.CorruptDocument, f.Name(), err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		doc.Close()
		return LoadResult{}, reader.NewLoadError(reader.IOFailure, f.Name(), errDisposed)
	}
	b.doc, b.pages, b.page, b.rendered = doc, n, 1, first

	chapters := make([]reader.Chapter, n)
	for i := range chapters {
		chapters[i] = reader.Chapter{Title: fmt.Sprintf("Page %d", i+1), Address: reader.PageAddress(i + 1)}
	}
	return LoadResult{Chapters: chapters, Initial: reader.PageAddress(1)}, nil
}

func (b *PDFBackend) NavigateTo(ctx context.Context, addr reader.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, ok := addr.Page()
	if !ok {
		return reader.InvalidAddress(addr, "not a page")
	}

	b.mu.Lock()
	doc, pages, disposed := b.doc, b.pages, b.disposed
	b.mu.Unlock()
	if doc == nil || disposed {
		return reader.InvalidAddress(addr, "no document loaded")
	}
	if n < 1 || n > pages {
		return reader.InvalidAddress(addr, fmt.Sprintf("page out of range [1, %d]", pages))
	}

	text, err := doc.RenderPage(n)
	if err != nil {
		return fmt.Errorf("render page %d: %w", n, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return reader.InvalidAddress(addr, "backend disposed")
	}
	b.page, b.rendered = n, text
	return nil
}

// Turn moves delta pages, stopping at the first and last page.
func (b *PDFBackend) Turn(ctx context.Context, delta int) error {
	b.mu.Lock()
	page, pages := b.page, b.pages
	b.mu.Unlock()
	if pages == 0 {
		return nil
	}
	target := min(max(page+delta, 1), pages)
	if target == page {
		return nil
	}
	return b.NavigateTo(ctx, reader.PageAddress(target))
}

func (b *PDFBackend) CurrentAddress() reader.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.doc == nil || b.disposed {
		return reader.Address{}
	}
	return reader.PageAddress(b.page)
}

func (b *PDFBackend) ChapterIndex(addr reader.Address) int {
	n, ok := addr.Page()
	b.mu.Lock()
	defer b.mu.Unlock()
	if !ok || n < 1 || n > b.pages {
		return -1
	}
	return n - 1
}

func (b *PDFBackend) View(width, height int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rendered, nil
}

func (b *PDFBackend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.disposed = true
	if b.doc != nil {
		b.doc.Close()
	}
	b.rendered = ""
}
