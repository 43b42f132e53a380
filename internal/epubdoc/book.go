// Package epubdoc renders EPUB books as fixed-size text pages.
//
// A Book keeps its own page cursor: page turns and reflow after a resize move
// it without anybody asking, and every such move is announced on Moved.
package epubdoc

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/muesli/reflow/wordwrap"
	"github.com/taylorskalyo/goreader/epub"
)

// Default page geometry in cells, used until the first Layout call.
const (
	DefaultWidth  = 72
	DefaultHeight = 30
)

// ErrUnknownFragment is returned by Display for fragments outside the book.
var ErrUnknownFragment = errors.New("unknown fragment")

// ErrDestroyed is returned by operations on a destroyed book.
var ErrDestroyed = errors.New("book destroyed")

type section struct {
	href   string
	blocks []block
}

type page struct {
	section int
	line    int // first line of the page within its section
	lines   []string
}

// Book is a paginated EPUB. It is safe for concurrent use.
type Book struct {
	mu       sync.Mutex
	sections []section
	toc      []TOCEntry

	width, height int
	pages         []page
	firstPage     []int          // first page of each section
	anchors       map[string]int // fragment -> page
	fragments     map[int]string // page -> preferred fragment

	cur       int
	moved     chan struct{}
	destroyed bool
}

// Open reads an EPUB from ra. Spine documents are extracted up front; the
// archive is not referenced after Open returns.
func Open(ra io.ReaderAt, size int64) (*Book, error) {
	r, err := epub.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	if len(r.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}
	book := r.Rootfiles[0]
	opfDir := path.Dir(book.FullPath)

	b := &Book{
		width:  DefaultWidth,
		height: DefaultHeight,
		moved:  make(chan struct{}, 1),
	}

	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		rc, err := ref.Item.Open()
		if err != nil {
			return nil, fmt.Errorf("open spine item %s: %w", ref.Item.HREF, err)
		}
		blocks, err := extractBlocks(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse spine item %s: %w", ref.Item.HREF, err)
		}
		b.sections = append(b.sections, section{
			href:   relHref(opfDir, joinHref(opfDir, ref.Item.HREF)),
			blocks: blocks,
		})
	}
	if len(b.sections) == 0 {
		return nil, fmt.Errorf("epub has an empty spine")
	}

	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub archive: %w", err)
	}
	toc, err := readTOC(zr, book, opfDir)
	if err != nil {
		// Books without an NCX still get one entry per spine document.
		toc = nil
	}
	b.layout()
	b.toc = b.resolvable(toc)
	b.indexFragments()
	return b, nil
}

// resolvable drops entries pointing outside the spine and falls back to one
// entry per section when nothing is left.
func (b *Book) resolvable(toc []TOCEntry) []TOCEntry {
	var out []TOCEntry
	for _, e := range toc {
		if _, ok := b.locate(e.Fragment); ok {
			out = append(out, e)
		}
	}
	if len(out) > 0 {
		return out
	}
	for i, s := range b.sections {
		out = append(out, TOCEntry{Label: fmt.Sprintf("Section %d", i+1), Fragment: s.href})
	}
	return out
}

// TOC returns the table of contents in document order.
func (b *Book) TOC() []TOCEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]TOCEntry(nil), b.toc...)
}

// Display moves the cursor to the page holding fragment.
func (b *Book) Display(fragment string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}
	p, ok := b.locate(fragment)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFragment, fragment)
	}
	b.cur = p
	return nil
}

// Locate returns the page index fragment resolves to.
func (b *Book) Locate(fragment string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locate(fragment)
}

// Current returns the fragment identifying the current page.
func (b *Book) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

// CurrentPage returns the index of the current page.
func (b *Book) CurrentPage() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// PageCount returns the number of pages at the current geometry.
func (b *Book) PageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pages)
}

// Turn flips delta pages, clamped to the book. It reports whether the
// cursor moved; a move is also announced on Moved.
func (b *Book) Turn(delta int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed || len(b.pages) == 0 {
		return false
	}
	next := min(max(b.cur+delta, 0), len(b.pages)-1)
	if next == b.cur {
		return false
	}
	b.cur = next
	b.signal()
	return true
}

// Layout repaginates the book for a width x height surface. The first line on
// screen stays on screen; if that changes the current fragment, the move is
// announced on Moved.
func (b *Book) Layout(width, height int) {
	if width < 1 || height < 1 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed || (width == b.width && height == b.height) {
		return
	}

	before := b.currentLocked()
	var sec, line int
	if b.cur < len(b.pages) {
		sec, line = b.pages[b.cur].section, b.pages[b.cur].line
	}

	b.width, b.height = width, height
	b.layout()
	b.indexFragments()

	b.cur = b.firstPage[sec]
	for p := b.firstPage[sec]; p < len(b.pages) && b.pages[p].section == sec; p++ {
		if b.pages[p].line <= line {
			b.cur = p
		}
	}
	if b.currentLocked() != before {
		b.signal()
	}
}

// Page returns the text of the current page.
func (b *Book) Page() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur >= len(b.pages) {
		return ""
	}
	return strings.Join(b.pages[b.cur].lines, "\n")
}

// Moved delivers a value whenever the cursor moves on its own. Moves that
// happen while a previous one is still pending are coalesced. The channel is
// closed by Destroy.
func (b *Book) Moved() <-chan struct{} { return b.moved }

// Destroy releases the book's content. It is safe to call more than once.
func (b *Book) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.sections, b.pages, b.anchors, b.fragments = nil, nil, nil, nil
	close(b.moved)
}

func (b *Book) signal() {
	select {
	case b.moved <- struct{}{}:
	default:
	}
}

func (b *Book) currentLocked() string {
	if b.cur >= len(b.pages) {
		return ""
	}
	if f, ok := b.fragments[b.cur]; ok {
		return f
	}
	p := b.pages[b.cur]
	return b.sections[p.section].href + "#page=" + strconv.Itoa(b.cur-b.firstPage[p.section])
}

func (b *Book) locate(fragment string) (int, bool) {
	if p, ok := b.anchors[fragment]; ok {
		return p, true
	}
	file, frag := splitFragment(fragment)
	n, ok := strings.CutPrefix(frag, "page=")
	if !ok {
		return 0, false
	}
	k, err := strconv.Atoi(n)
	if err != nil || k < 0 {
		return 0, false
	}
	first, ok := b.anchors[file]
	if !ok {
		return 0, false
	}
	p := first + k
	if p >= len(b.pages) || b.pages[p].section != b.pages[first].section {
		return 0, false
	}
	return p, true
}

// layout wraps every section to the current width and cuts it into pages.
// Each section starts on a fresh page.
func (b *Book) layout() {
	b.pages = b.pages[:0]
	b.firstPage = make([]int, len(b.sections))
	b.anchors = make(map[string]int)

	for si, s := range b.sections {
		var lines []string
		var pending []string
		anchorLines := make(map[string]int)
		for _, bl := range s.blocks {
			if bl.anchor != "" {
				pending = append(pending, bl.anchor)
				continue
			}
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			// Anchors point at the first line of the text that follows them.
			for _, id := range pending {
				if _, seen := anchorLines[id]; !seen {
					anchorLines[id] = len(lines)
				}
			}
			pending = pending[:0]
			lines = append(lines, strings.Split(wordwrap.String(bl.text, b.width), "\n")...)
		}
		for _, id := range pending {
			if _, seen := anchorLines[id]; !seen {
				anchorLines[id] = len(lines)
			}
		}

		first := len(b.pages)
		b.firstPage[si] = first
		b.anchors[s.href] = first
		if len(lines) == 0 {
			b.pages = append(b.pages, page{section: si})
			continue
		}
		for start := 0; start < len(lines); start += b.height {
			end := min(start+b.height, len(lines))
			b.pages = append(b.pages, page{section: si, line: start, lines: lines[start:end]})
		}
		for id, line := range anchorLines {
			p := first + min(line, len(lines)-1)/b.height
			b.anchors[s.href+"#"+id] = p
		}
	}
}

// indexFragments picks the fragment each page reports as current: the first
// TOC entry landing on it, otherwise the section href on a section's first page.
func (b *Book) indexFragments() {
	b.fragments = make(map[int]string)
	for _, e := range b.toc {
		if p, ok := b.locate(e.Fragment); ok {
			if _, taken := b.fragments[p]; !taken {
				b.fragments[p] = e.Fragment
			}
		}
	}
	for si, s := range b.sections {
		if _, taken := b.fragments[b.firstPage[si]]; !taken {
			b.fragments[b.firstPage[si]] = s.href
		}
	}
}
