package extract

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown detects chapters from Markdown headings. The shallowest heading
// level present in the document marks chapter boundaries; deeper headings stay
// inside their chapter.
type Markdown struct {
	FoldPreamble bool
}

type heading struct {
	level int
	start int
	title string
}

func (m *Markdown) Extract(name, src string) Result {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var found []heading
	minLevel := 7
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		start := lineStart(source, lines.At(0).Start)
		found = append(found, heading{
			level: h.Level,
			start: start,
			title: strings.TrimSpace(nodeText(h, source)),
		})
		if h.Level < minLevel {
			minLevel = h.Level
		}
		return ast.WalkSkipChildren, nil
	})

	var starts []int
	var titles []string
	for _, h := range found {
		if h.level != minLevel {
			continue
		}
		title := h.title
		if title == "" {
			title = "Chapter " + strconv.Itoa(len(starts)+1)
		}
		starts = append(starts, h.start)
		titles = append(titles, title)
	}

	return sectionize(name, src, starts, titles, m.FoldPreamble)
}

// nodeText concatenates the literal text below n.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(nodeText(c, source))
		}
	}
	return sb.String()
}

func lineStart(source []byte, i int) int {
	for i > 0 && source[i-1] != '\n' {
		i--
	}
	return i
}
