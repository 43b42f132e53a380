// Package reader holds the format-agnostic data model shared by every backend:
// addresses, chapters, bookmarks, display options and the error taxonomy.
package reader

import (
	"fmt"
	"strconv"
)

// Encoding identifies which backend-native scheme an Address uses.
type Encoding uint8

const (
	EncodingNone Encoding = iota
	EncodingTextSpan
	EncodingFragment
	EncodingPage
)

func (e Encoding) String() string {
	switch e {
	case EncodingTextSpan:
		return "text-span"
	case EncodingFragment:
		return "fragment"
	case EncodingPage:
		return "page"
	default:
		return "none"
	}
}

// Address is an opaque position inside a loaded document. Addresses are
// compared structurally; two addresses of different encodings are never equal.
// The zero value means "no position".
type Address struct {
	enc  Encoding
	n    int
	frag string
}

// TextSpanAddress addresses the i-th chapter span of a text document.
func TextSpanAddress(i int) Address {
	return Address{enc: EncodingTextSpan, n: i}
}

// FragmentAddress wraps a backend-native fragment identifier.
func FragmentAddress(id string) Address {
	return Address{enc: EncodingFragment, frag: id}
}

// PageAddress addresses a 1-based page.
func PageAddress(n int) Address {
	return Address{enc: EncodingPage, n: n}
}

func (a Address) Encoding() Encoding { return a.enc }

// IsZero reports whether a carries no position.
func (a Address) IsZero() bool { return a.enc == EncodingNone }

// Span returns the span index of a text address.
func (a Address) Span() (int, bool) {
	return a.n, a.enc == EncodingTextSpan
}

// Fragment returns the fragment identifier of an EPUB address.
func (a Address) Fragment() (string, bool) {
	return a.frag, a.enc == EncodingFragment
}

// Page returns the page index of a PDF address.
func (a Address) Page() (int, bool) {
	return a.n, a.enc == EncodingPage
}

func (a Address) Equal(o Address) bool { return a == o }

// String renders the address for display.
func (a Address) String() string {
	switch a.enc {
	case EncodingTextSpan:
		return "chapter-" + strconv.Itoa(a.n)
	case EncodingFragment:
		return a.frag
	case EncodingPage:
		return "page-" + strconv.Itoa(a.n)
	default:
		return "<none>"
	}
}

// GoString keeps test failure output unambiguous.
func (a Address) GoString() string {
	return fmt.Sprintf("reader.Address{%s %q}", a.enc, a.String())
}
