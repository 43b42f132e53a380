package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/x7dl8p/novel-reader/internal/backend"
	"github.com/x7dl8p/novel-reader/internal/reader"
)

type fakeBackend struct {
	mu          sync.Mutex
	kind        backend.Kind
	chapters    []reader.Chapter
	loadErr     error
	redirect    map[reader.Address]reader.Address
	cur         reader.Address
	navigations []reader.Address
	disposed    int
}

func (b *fakeBackend) Kind() backend.Kind { return b.kind }

func (b *fakeBackend) Load(ctx context.Context, f backend.File) (backend.LoadResult, error) {
	if b.loadErr != nil {
		return backend.LoadResult{}, b.loadErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var initial reader.Address
	if len(b.chapters) > 0 {
		initial = b.chapters[0].Address
	}
	b.cur = initial
	return backend.LoadResult{Chapters: b.chapters, Initial: initial}, nil
}

func (b *fakeBackend) NavigateTo(ctx context.Context, addr reader.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navigations = append(b.navigations, addr)
	if to, ok := b.redirect[addr]; ok {
		b.cur = to
		return nil
	}
	for _, ch := range b.chapters {
		if ch.Address == addr {
			b.cur = addr
			return nil
		}
	}
	return reader.InvalidAddress(addr, "not in document")
}

func (b *fakeBackend) CurrentAddress() reader.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

func (b *fakeBackend) ChapterIndex(addr reader.Address) int {
	for i, ch := range b.chapters {
		if ch.Address == addr {
			return i
		}
	}
	return -1
}

func (b *fakeBackend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed++
}

// pagingBackend turns pages and moves on its own.
type pagingBackend struct {
	*fakeBackend
	moved     chan struct{}
	closeOnce sync.Once
	turns     []int
}

func (b *pagingBackend) Turn(ctx context.Context, delta int) error {
	b.mu.Lock()
	b.turns = append(b.turns, delta)
	b.mu.Unlock()
	return nil
}

func (b *pagingBackend) Moved() <-chan struct{} { return b.moved }

// moveTo moves the cursor the way a reflow would.
func (b *pagingBackend) moveTo(addr reader.Address) {
	b.mu.Lock()
	b.cur = addr
	b.mu.Unlock()
	b.moved <- struct{}{}
}

func (b *pagingBackend) Dispose() {
	b.fakeBackend.Dispose()
	b.closeOnce.Do(func() { close(b.moved) })
}

func textChapters(titles ...string) []reader.Chapter {
	out := make([]reader.Chapter, len(titles))
	for i, t := range titles {
		out[i] = reader.Chapter{Title: t, Address: reader.TextSpanAddress(i)}
	}
	return out
}

func epubChapters(frags ...string) []reader.Chapter {
	out := make([]reader.Chapter, len(frags))
	for i, f := range frags {
		out[i] = reader.Chapter{Title: "Section " + f, Address: reader.FragmentAddress(f)}
	}
	return out
}

func pdfChapters(n int) []reader.Chapter {
	out := make([]reader.Chapter, n)
	for i := range out {
		out[i] = reader.Chapter{Title: fmt.Sprintf("Page %d", i+1), Address: reader.PageAddress(i + 1)}
	}
	return out
}

// fakes is a backend factory remembering every backend it made.
type fakes struct {
	made  []backend.Backend
	setup func(b *fakeBackend)
}

func (f *fakes) factory(kind backend.Kind) backend.Backend {
	fb := &fakeBackend{kind: kind}
	switch kind {
	case backend.EPUB:
		fb.chapters = epubChapters("ch1.xhtml", "ch2.xhtml", "ch3.xhtml")
	case backend.PDF:
		fb.chapters = pdfChapters(3)
	default:
		fb.chapters = textChapters("One", "Two", "Three")
	}
	if f.setup != nil {
		f.setup(fb)
	}
	var b backend.Backend = fb
	if kind == backend.EPUB {
		b = &pagingBackend{fakeBackend: fb, moved: make(chan struct{}, 1)}
	}
	f.made = append(f.made, b)
	return b
}

func fake(b backend.Backend) *fakeBackend {
	if p, ok := b.(*pagingBackend); ok {
		return p.fakeBackend
	}
	return b.(*fakeBackend)
}

type fakeFonts struct {
	err    error
	loaded []string
}

func (f *fakeFonts) Load(ctx context.Context, family, url string) error {
	if f.err != nil {
		return f.err
	}
	f.loaded = append(f.loaded, family)
	return nil
}
