package extract

import (
	"regexp"
	"strings"
)

// headingRegex matches "Chapter <number>" headings, optionally followed by a
// title after a colon, period or dash. The number is Arabic or upper-case
// Roman.
var headingRegex = regexp.MustCompile(`(?im)^chapter[ \t]+(\d+|(?-i:[IVXLCDM]+))(?:[ \t]*[:.\-][ \t]*(.*?))?[ \t\r]*$`)

// Headings detects chapters from "Chapter N: Title" lines.
//
// Text before the first heading belongs to no chapter unless FoldPreamble is
// set, in which case the first chapter starts at offset zero.
type Headings struct {
	FoldPreamble bool
}

func (h *Headings) Extract(name, text string) Result {
	matches := headingRegex.FindAllStringSubmatchIndex(text, -1)

	starts := make([]int, 0, len(matches))
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		number := text[m[2]:m[3]]
		title := ""
		if m[4] >= 0 {
			title = strings.TrimSpace(text[m[4]:m[5]])
		}
		if title == "" {
			title = "Chapter " + number
		}
		starts = append(starts, m[0])
		titles = append(titles, title)
	}

	return sectionize(name, text, starts, titles, h.FoldPreamble)
}
