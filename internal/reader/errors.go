package reader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrInvalidAddress reports navigation with an address that does not belong
// to the loaded document (wrong encoding, unknown fragment, page out of range).
var ErrInvalidAddress = errors.New("invalid address")

// InvalidAddress wraps ErrInvalidAddress with the offending address.
func InvalidAddress(a Address, why string) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidAddress, a, why)
}

// LoadReason classifies why a document failed to load.
type LoadReason int

const (
	IOFailure LoadReason = iota
	UnsupportedFormat
	CorruptDocument
)

func (r LoadReason) String() string {
	switch r {
	case UnsupportedFormat:
		return "unsupported format"
	case CorruptDocument:
		return "corrupt document"
	default:
		return "i/o failure"
	}
}

// LoadError is returned when opening a document fails.
type LoadError struct {
	Reason LoadReason
	Name   string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Name, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError builds a LoadError for the named file.
func NewLoadError(reason LoadReason, name string, err error) *LoadError {
	return &LoadError{Reason: reason, Name: name, Err: err}
}

// FontLoadError is a soft failure: the font is unusable but reading goes on.
type FontLoadError struct {
	Family string
	URL    string
	Err    error
}

func (e *FontLoadError) Error() string {
	return fmt.Sprintf("load font %q from %s: %v", e.Family, e.URL, e.Err)
}

func (e *FontLoadError) Unwrap() error { return e.Err }

// Classify maps err onto the error taxonomy. Errors that already belong to it
// are returned unchanged; anything else becomes a LoadError for name.
func Classify(name string, err error) error {
	if err == nil {
		return nil
	}
	var le *LoadError
	var fe *FontLoadError
	switch {
	case errors.As(err, &le), errors.As(err, &fe), errors.Is(err, ErrInvalidAddress):
		return err
	}
	var perr *fs.PathError
	if errors.As(err, &perr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewLoadError(IOFailure, name, err)
	}
	return NewLoadError(CorruptDocument, name, err)
}
