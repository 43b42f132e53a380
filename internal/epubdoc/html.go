package epubdoc

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// block is a paragraph of text or, when anchor is set, the position of an
// element id inside the section.
type block struct {
	text   string
	anchor string
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Blockquote: true, atom.Pre: true, atom.Tr: true,
	atom.Br: true, atom.Hr: true, atom.Dt: true, atom.Dd: true, atom.Figcaption: true,
}

// extractBlocks walks an XHTML document and returns its paragraphs in order,
// interleaved with anchor markers for every element carrying an id.
func extractBlocks(r io.Reader) ([]block, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var blocks []block
	var cur strings.Builder
	flush := func() {
		if t := strings.Join(strings.Fields(cur.String()), " "); t != "" {
			blocks = append(blocks, block{text: t})
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Head, atom.Script, atom.Style:
				return
			}
			isBlock := blockElements[n.DataAtom]
			if isBlock {
				flush()
			}
			if id := attr(n, "id"); id != "" {
				flush()
				blocks = append(blocks, block{anchor: id})
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if isBlock {
				flush()
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()
	return blocks, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
