package backend

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/x7dl8p/novel-reader/internal/epubdoc"
)

// fakeBook is an EPUBRenderer with one page per fragment in pages.
type fakeBook struct {
	mu        sync.Mutex
	toc       []epubdoc.TOCEntry
	pages     []string // fragment shown on each page
	cur       int
	moved     chan struct{}
	destroyed bool
	layouts   int
}

func newFakeBook(toc []epubdoc.TOCEntry, pages ...string) *fakeBook {
	return &fakeBook{toc: toc, pages: pages, moved: make(chan struct{}, 1)}
}

func (f *fakeBook) TOC() []epubdoc.TOCEntry { return f.toc }

func (f *fakeBook) Display(fragment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return epubdoc.ErrDestroyed
	}
	for i, p := range f.pages {
		if p == fragment {
			f.cur = i
			return nil
		}
	}
	return fmt.Errorf("%w: %s", epubdoc.ErrUnknownFragment, fragment)
}

func (f *fakeBook) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[f.cur]
}

func (f *fakeBook) Locate(fragment string) (int, bool) {
	for i, p := range f.pages {
		if p == fragment {
			return i, true
		}
	}
	return 0, false
}

func (f *fakeBook) Turn(delta int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := min(max(f.cur+delta, 0), len(f.pages)-1)
	if next == f.cur {
		return false
	}
	f.cur = next
	select {
	case f.moved <- struct{}{}:
	default:
	}
	return true
}

func (f *fakeBook) Layout(width, height int) {
	f.mu.Lock()
	f.layouts++
	f.mu.Unlock()
}

func (f *fakeBook) Page() string { return "page " + f.Current() }

func (f *fakeBook) Moved() <-chan struct{} { return f.moved }

func (f *fakeBook) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.destroyed {
		f.destroyed = true
		close(f.moved)
	}
}

// fakePDF renders "text of page N" for each of its pages, numbered from 1.
type fakePDF struct {
	pages  int
	closed int
	fail   map[int]bool
}

func (d *fakePDF) PageCount() int { return d.pages }

func (d *fakePDF) RenderPage(i int) (string, error) {
	if i < 1 || i > d.pages {
		return "", fmt.Errorf("page %d of %d", i, d.pages)
	}
	if d.fail[i] {
		return "", errors.New("bad content stream")
	}
	return fmt.Sprintf("text of page %d", i), nil
}

func (d *fakePDF) Close() error {
	d.closed++
	return nil
}

func openFakePDF(d *fakePDF) OpenPDFFunc {
	return func(io.ReaderAt, int64) (PDFDocument, error) { return d, nil }
}
