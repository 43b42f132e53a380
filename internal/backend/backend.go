// Package backend adapts the text, EPUB and PDF document engines to one
// capability set the session controller can drive without knowing the format.
package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/x7dl8p/novel-reader/internal/reader"
)

// Kind identifies a backend variant.
type Kind int

const (
	Text Kind = iota
	EPUB
	PDF
)

func (k Kind) String() string {
	switch k {
	case EPUB:
		return "EPUB"
	case PDF:
		return "PDF"
	default:
		return "Text"
	}
}

// Encoding returns the address encoding every address of this kind uses.
func (k Kind) Encoding() reader.Encoding {
	switch k {
	case EPUB:
		return reader.EncodingFragment
	case PDF:
		return reader.EncodingPage
	default:
		return reader.EncodingTextSpan
	}
}

// File is a document handed to a backend: a declared name, used only for its
// extension, and a way to read the bytes.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type localFile struct{ path string }

// OpenLocal returns a File reading path from disk when loaded.
func OpenLocal(path string) File { return localFile{path: path} }

func (f localFile) Name() string                 { return filepath.Base(f.path) }
func (f localFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type memFile struct {
	name string
	data []byte
}

// Bytes returns a File over an in-memory document.
func Bytes(name string, data []byte) File { return memFile{name: name, data: data} }

func (f memFile) Name() string { return f.name }
func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// LoadResult is what a successful load publishes: the chapter list in
// document order and the position the document opens at.
type LoadResult struct {
	Chapters []reader.Chapter
	Initial  reader.Address
}

// Backend is one document engine. Load, NavigateTo and Turn may block and are
// run off the event loop; implementations guard their state accordingly.
type Backend interface {
	Kind() Kind
	// Load reads and parses f. Failures are *reader.LoadError.
	Load(ctx context.Context, f File) (LoadResult, error)
	// NavigateTo moves to addr. Addresses that do not belong to the loaded
	// document fail with reader.ErrInvalidAddress.
	NavigateTo(ctx context.Context, addr reader.Address) error
	// CurrentAddress reports where the backend actually is, which may differ
	// from the last NavigateTo target.
	CurrentAddress() reader.Address
	// ChapterIndex returns the index of the chapter containing addr, or -1.
	ChapterIndex(addr reader.Address) int
	// Dispose releases every resource. It is idempotent.
	Dispose()
}

// Paginator is implemented by backends whose surface turns pages.
type Paginator interface {
	Turn(ctx context.Context, delta int) error
}

// Notifier is implemented by backends whose cursor can move without being
// asked. The channel is closed when the backend is disposed.
type Notifier interface {
	Moved() <-chan struct{}
}

// Surface is implemented by backends that can show their current content in
// a width x height cell area.
type Surface interface {
	View(width, height int) (string, error)
}

var errDisposed = errors.New("backend disposed")

// readAll reads f completely, honoring ctx between open and read.
func readAll(ctx context.Context, f File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, reader.NewLoadError(reader.IOFailure, f.Name(), err)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, reader.NewLoadError(reader.IOFailure, f.Name(), err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, reader.NewLoadError(reader.IOFailure, f.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, reader.NewLoadError(reader.IOFailure, f.Name(), err)
	}
	return data, nil
}
