// Package extract detects chapter boundaries in plain documents.
//
// A Strategy turns raw text into an ordered list of Sections, each covering a
// byte span of the text. Spans are half-open, contiguous and ordered.
package extract

import (
	"path/filepath"
	"strings"
)

// Span is the half-open byte range [Start, End) of a text.
type Span struct {
	Start, End int
}

func (s Span) Len() int { return s.End - s.Start }

// Slice returns the part of text covered by s.
func (s Span) Slice(text string) string { return text[s.Start:s.End] }

// Section is a detected chapter with the span of its content.
type Section struct {
	Title string
	Span  Span
}

// Result is the output of a Strategy. Preamble covers the text before the
// first heading that no section owns; it is empty when nothing was dropped.
type Result struct {
	Sections []Section
	Preamble Span
}

// Strategy finds chapters in text. name is the document's file name and is
// used to title the synthetic chapter of documents without headings.
type Strategy interface {
	Extract(name, text string) Result
}

// For picks the strategy matching a file name.
func For(name string, foldPreamble bool) Strategy {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return &Markdown{FoldPreamble: foldPreamble}
	}
	return &Headings{FoldPreamble: foldPreamble}
}

// DocumentTitle strips directory and extension from a file name.
func DocumentTitle(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// sectionize turns boundary offsets into contiguous sections. titles[i]
// belongs to the section starting at starts[i].
func sectionize(name, text string, starts []int, titles []string, fold bool) Result {
	if len(starts) == 0 {
		return Result{Sections: []Section{{
			Title: DocumentTitle(name),
			Span:  Span{0, len(text)},
		}}}
	}

	var res Result
	if starts[0] > 0 {
		if fold {
			starts[0] = 0
		} else {
			res.Preamble = Span{0, starts[0]}
		}
	}

	res.Sections = make([]Section, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		res.Sections[i] = Section{Title: titles[i], Span: Span{start, end}}
	}
	return res
}
