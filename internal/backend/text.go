package backend

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/x7dl8p/novel-reader/internal/extract"
	"github.com/x7dl8p/novel-reader/internal/reader"
)

func init() {
	Register(Text, "Text", []string{".txt", ".md", ".markdown"}, func() Backend { return NewText(false) })
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// TextBackend reads plain and Markdown documents whose chapters are found by
// an extract.Strategy. Addresses are chapter indexes.
type TextBackend struct {
	FoldPreamble bool

	mu       sync.Mutex
	text     string
	sections []extract.Section
	preamble extract.Span
	cur      int
	loaded   bool
	disposed bool
}

// NewText creates an unloaded text backend.
func NewText(foldPreamble bool) *TextBackend {
	return &TextBackend{FoldPreamble: foldPreamble}
}

func (b *TextBackend) Kind() Kind { return Text }

func (b *TextBackend) Load(ctx context.Context, f File) (LoadResult, error) {
	data, err := readAll(ctx, f)
	if err != nil {
		return LoadResult{}, err
	}
	text, err := decodeText(data)
	if err != nil {
		return LoadResult{}, reader.NewLoadError(reader.UnsupportedFormat, f.Name(), err)
	}
	res := extract.For(f.Name(), b.FoldPreamble).Extract(f.Name(), text)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return LoadResult{}, reader.NewLoadError(reader.IOFailure, f.Name(), errDisposed)
	}
	b.text, b.sections, b.preamble = text, res.Sections, res.Preamble
	b.cur, b.loaded = 0, true

	chapters := make([]reader.Chapter, len(res.Sections))
	for i, s := range res.Sections {
		chapters[i] = reader.Chapter{Title: s.Title, Address: reader.TextSpanAddress(i)}
	}
	return LoadResult{Chapters: chapters, Initial: reader.TextSpanAddress(0)}, nil
}

// decodeText returns data as UTF-8. UTF-16 input is accepted only with a
// byte order mark; anything else must already be valid UTF-8.
func decodeText(data []byte) (string, error) {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	if !utf8.Valid(data) {
		return "", errors.New("not valid UTF-8 text")
	}
	return string(data), nil
}

func (b *TextBackend) NavigateTo(ctx context.Context, addr reader.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded || b.disposed {
		return reader.InvalidAddress(addr, "no document loaded")
	}
	i, ok := addr.Span()
	if !ok {
		return reader.InvalidAddress(addr, "not a text span")
	}
	if i < 0 || i >= len(b.sections) {
		return reader.InvalidAddress(addr, "no such chapter")
	}
	b.cur = i
	return nil
}

func (b *TextBackend) CurrentAddress() reader.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded || b.disposed {
		return reader.Address{}
	}
	return reader.TextSpanAddress(b.cur)
}

func (b *TextBackend) ChapterIndex(addr reader.Address) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := addr.Span()
	if !ok || i < 0 || i >= len(b.sections) {
		return -1
	}
	return i
}

// View returns the current chapter's text. The surface scrolls it, so the
// geometry is ignored.
func (b *TextBackend) View(width, height int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.loaded || b.disposed {
		return "", nil
	}
	return b.sections[b.cur].Span.Slice(b.text), nil
}

// Preamble returns the text before the first heading that no chapter owns.
func (b *TextBackend) Preamble() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.preamble.Slice(b.text)
}

func (b *TextBackend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.text, b.sections, b.preamble = "", nil, extract.Span{}
}
