package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/x7dl8p/novel-reader/internal/epubdoc"
	"github.com/x7dl8p/novel-reader/internal/reader"
)

func init() {
	Register(EPUB, "EPUB", []string{".epub"}, func() Backend { return NewEPUB() })
}

// EPUBRenderer is the paginated EPUB engine the EPUB backend drives.
// *epubdoc.Book implements it.
type EPUBRenderer interface {
	TOC() []epubdoc.TOCEntry
	Display(fragment string) error
	Current() string
	Locate(fragment string) (int, bool)
	Turn(delta int) bool
	Layout(width, height int)
	Page() string
	Moved() <-chan struct{}
	Destroy()
}

// OpenEPUBFunc opens a renderer over an EPUB archive.
type OpenEPUBFunc func(ra io.ReaderAt, size int64) (EPUBRenderer, error)

// closedMoved is handed out before a renderer exists so watchers return.
var closedMoved = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// EPUBBackend addresses positions by fragment ("chapter.xhtml#id"). The
// renderer moves on its own when pages turn or the surface reflows.
type EPUBBackend struct {
	open OpenEPUBFunc

	mu       sync.Mutex
	r        EPUBRenderer
	chapters []reader.Chapter
	disposed bool
}

// NewEPUB creates an EPUB backend rendering with epubdoc.
func NewEPUB() *EPUBBackend {
	return NewEPUBWith(func(ra io.ReaderAt, size int64) (EPUBRenderer, error) {
		b, err := epubdoc.Open(ra, size)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

// NewEPUBWith creates an EPUB backend over a custom renderer.
func NewEPUBWith(open OpenEPUBFunc) *EPUBBackend {
	return &EPUBBackend{open: open}
}

func (b *EPUBBackend) Kind() Kind { return EPUB }

func (b *EPUBBackend) Load(ctx context.Context, f File) (LoadResult, error) {
	data, err := readAll(ctx, f)
	if err != nil {
		return LoadResult{}, err
	}
	r, err := b.open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return LoadResult{}, reader.NewLoadError(reader.CorruptDocument, f.Name(), err)
	}

	// A fragment may appear more than once in a TOC; the first entry wins.
	var chapters []reader.Chapter
	seen := make(map[string]bool)
	for _, e := range r.TOC() {
		if seen[e.Fragment] {
			continue
		}
		seen[e.Fragment] = true
		title := e.Label
		if title == "" {
			title = e.Fragment
		}
		chapters = append(chapters, reader.Chapter{Title: title, Address: reader.FragmentAddress(e.Fragment)})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		r.Destroy()
		return LoadResult{}, reader.NewLoadError(reader.IOFailure, f.Name(), errDisposed)
	}
	b.r, b.chapters = r, chapters
	return LoadResult{Chapters: chapters, Initial: reader.FragmentAddress(r.Current())}, nil
}

func (b *EPUBBackend) renderer() EPUBRenderer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return nil
	}
	return b.r
}

func (b *EPUBBackend) NavigateTo(ctx context.Context, addr reader.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := b.renderer()
	if r == nil {
		return reader.InvalidAddress(addr, "no document loaded")
	}
	frag, ok := addr.Fragment()
	if !ok {
		return reader.InvalidAddress(addr, "not a fragment")
	}
	if err := r.Display(frag); err != nil {
		if errors.Is(err, epubdoc.ErrUnknownFragment) || errors.Is(err, epubdoc.ErrDestroyed) {
			return reader.InvalidAddress(addr, err.Error())
		}
		return err
	}
	return nil
}

func (b *EPUBBackend) Turn(ctx context.Context, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r := b.renderer(); r != nil {
		r.Turn(delta)
	}
	return nil
}

func (b *EPUBBackend) CurrentAddress() reader.Address {
	r := b.renderer()
	if r == nil {
		return reader.Address{}
	}
	return reader.FragmentAddress(r.Current())
}

// ChapterIndex matches the fragment exactly when it is a chapter, otherwise
// picks the last chapter starting on or before its page.
func (b *EPUBBackend) ChapterIndex(addr reader.Address) int {
	frag, ok := addr.Fragment()
	if !ok {
		return -1
	}
	b.mu.Lock()
	r, chapters := b.r, b.chapters
	b.mu.Unlock()
	if r == nil {
		return -1
	}
	for i, ch := range chapters {
		if ch.Address.Equal(addr) {
			return i
		}
	}
	page, ok := r.Locate(frag)
	if !ok {
		return -1
	}
	best, bestPage := -1, -1
	for i, ch := range chapters {
		f, _ := ch.Address.Fragment()
		p, ok := r.Locate(f)
		if ok && p <= page && p >= bestPage {
			best, bestPage = i, p
		}
	}
	return best
}

func (b *EPUBBackend) Moved() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.r == nil {
		return closedMoved
	}
	return b.r.Moved()
}

// View lays the book out for the surface and returns the current page.
func (b *EPUBBackend) View(width, height int) (string, error) {
	r := b.renderer()
	if r == nil {
		return "", nil
	}
	r.Layout(width, height)
	return r.Page(), nil
}

func (b *EPUBBackend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.disposed = true
	if b.r != nil {
		b.r.Destroy()
	}
	b.chapters = nil
}
