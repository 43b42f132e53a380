package extract

import (
	"fmt"
	"strings"
	"testing"
)

func TestHeadingsScenario(t *testing.T) {
	text := "Intro text\nChapter 1: Beginnings\nBody one\nChapter II - The End\nBody two"

	res := (&Headings{}).Extract("novel.txt", text)

	want := []Section{
		{Title: "Beginnings", Span: Span{11, 42}},
		{Title: "The End", Span: Span{42, 71}},
	}
	if len(res.Sections) != len(want) {
		t.Fatalf("got %d sections, want %d: %+v", len(res.Sections), len(want), res.Sections)
	}
	for i, s := range res.Sections {
		if s != want[i] {
			t.Errorf("section %d = %+v, want %+v", i, s, want[i])
		}
	}
	if res.Preamble != (Span{0, 11}) {
		t.Errorf("preamble = %+v, want [0,11)", res.Preamble)
	}
	if got := res.Sections[0].Span.Slice(text); !strings.HasPrefix(got, "Chapter 1: Beginnings\n") {
		t.Errorf("first section content = %q", got)
	}
}

func TestHeadingsFoldPreamble(t *testing.T) {
	text := "Intro text\nChapter 1: Beginnings\nBody one\nChapter II - The End\nBody two"

	res := (&Headings{FoldPreamble: true}).Extract("novel.txt", text)

	if len(res.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(res.Sections))
	}
	if res.Sections[0].Span != (Span{0, 42}) {
		t.Errorf("first span = %+v, want [0,42)", res.Sections[0].Span)
	}
	if res.Preamble.Len() != 0 {
		t.Errorf("preamble should be empty when folded, got %+v", res.Preamble)
	}
}

func TestHeadingsNoMatches(t *testing.T) {
	tests := []struct {
		name, file, text, title string
	}{
		{"plain prose", "dir/My Novel.txt", "It was a dark and stormy night.\nThe end.", "My Novel"},
		{"empty text", "empty.txt", "", "empty"},
		{"mid sentence mention", "a.txt", "See chapter 3: the return for details.\n", "a"},
		{"no extension", "README", "hello", "README"},
		{"dotfile", ".notes", "x", ".notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := (&Headings{}).Extract(tt.file, tt.text)
			if len(res.Sections) != 1 {
				t.Fatalf("got %d sections, want 1", len(res.Sections))
			}
			s := res.Sections[0]
			if s.Title != tt.title {
				t.Errorf("title = %q, want %q", s.Title, tt.title)
			}
			if s.Span != (Span{0, len(tt.text)}) {
				t.Errorf("span = %+v, want [0,%d)", s.Span, len(tt.text))
			}
		})
	}
}

func TestHeadingsTitles(t *testing.T) {
	tests := []struct {
		line, want string
	}{
		{"Chapter 1: Beginnings", "Beginnings"},
		{"CHAPTER 2 - Loud", "Loud"},
		{"chapter 3. lower", "lower"},
		{"Chapter XIV: Roman", "Roman"},
		{"Chapter iv - lowercase roman", "lowercase roman"},
		{"Chapter 5", "Chapter 5"},
		{"Chapter VII:", "Chapter VII"},
		{"Chapter 8 -    ", "Chapter 8"},
		{"Chapter 9: Windows\r", "Windows"},
		{"Chapter 10:   padded title   ", "padded title"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			res := (&Headings{}).Extract("x.txt", tt.line+"\nbody\n")
			if len(res.Sections) != 1 {
				t.Fatalf("got %d sections, want 1", len(res.Sections))
			}
			if got := res.Sections[0].Title; got != tt.want {
				t.Errorf("title = %q, want %q", got, tt.want)
			}
			if res.Sections[0].Span.Start != 0 {
				t.Errorf("heading should start at 0, got %d", res.Sections[0].Span.Start)
			}
		})
	}
}

func TestHeadingsRequireLineStart(t *testing.T) {
	text := "  Chapter 1: indented\nThe Chapter 2: inline\nChapter 3: real\nbody"
	res := (&Headings{}).Extract("x.txt", text)
	if len(res.Sections) != 1 || res.Sections[0].Title != "real" {
		t.Fatalf("sections = %+v, want only \"real\"", res.Sections)
	}
}

func TestHeadingsRomanNumeralsUpperCase(t *testing.T) {
	text := "Chapter 1: Start\nbody\nChapter mix\nChapter did\nchapter IV: Later\nmore"
	res := (&Headings{}).Extract("x.txt", text)
	var titles []string
	for _, s := range res.Sections {
		titles = append(titles, s.Title)
	}
	if len(titles) != 2 || titles[0] != "Start" || titles[1] != "Later" {
		t.Fatalf("titles = %q, want [Start Later]", titles)
	}
}

func TestHeadingsSpansCoverText(t *testing.T) {
	for n := 1; n <= 12; n++ {
		var sb strings.Builder
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&sb, "Chapter %d: Part %d\n", i, i)
			sb.WriteString(strings.Repeat("words and more words. ", i))
			sb.WriteString("\n\n")
		}
		text := sb.String()

		res := (&Headings{}).Extract("x.txt", text)
		if len(res.Sections) != n {
			t.Fatalf("n=%d: got %d sections", n, len(res.Sections))
		}
		if res.Sections[0].Span.Start != 0 {
			t.Errorf("n=%d: first span starts at %d", n, res.Sections[0].Span.Start)
		}
		for i := 1; i < n; i++ {
			if res.Sections[i].Span.Start != res.Sections[i-1].Span.End {
				t.Errorf("n=%d: gap or overlap between %d and %d", n, i-1, i)
			}
		}
		if last := res.Sections[n-1].Span.End; last != len(text) {
			t.Errorf("n=%d: last span ends at %d, want %d", n, last, len(text))
		}
	}
}

func TestFor(t *testing.T) {
	if _, ok := For("book.md", false).(*Markdown); !ok {
		t.Error("For(.md) should pick Markdown")
	}
	if _, ok := For("book.MARKDOWN", false).(*Markdown); !ok {
		t.Error("For(.MARKDOWN) should pick Markdown")
	}
	if h, ok := For("book.txt", true).(*Headings); !ok || !h.FoldPreamble {
		t.Error("For(.txt) should pick Headings carrying the fold flag")
	}
}

func BenchmarkHeadings(b *testing.B) {
	var sb strings.Builder
	for i := 1; i <= 200; i++ {
		fmt.Fprintf(&sb, "Chapter %d: Title %d\n", i, i)
		sb.WriteString(strings.Repeat("Hello world this is a test sentence with multiple words. ", 50))
		sb.WriteString("\n")
	}
	text := sb.String()
	h := &Headings{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Extract("bench.txt", text)
	}
}
