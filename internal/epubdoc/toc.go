package epubdoc

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// TOCEntry is one table-of-contents entry. Fragment is relative to the
// package document and may carry a "#id" suffix.
type TOCEntry struct {
	Label    string
	Fragment string
	Level    int
}

// readTOC parses the NCX of book. opfDir is the directory of the package
// document inside the archive.
func readTOC(zr *zip.Reader, book *epub.Rootfile, opfDir string) ([]TOCEntry, error) {
	ncxPath, data, err := findAndReadNCX(zr, book, opfDir)
	if err != nil {
		return nil, err
	}

	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}

	return flattenNavPoints(toc.NavMap.NavPoints, path.Dir(ncxPath), opfDir, 0), nil
}

func findAndReadNCX(zr *zip.Reader, book *epub.Rootfile, opfDir string) (string, []byte, error) {
	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = joinHref(opfDir, item.HREF)
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}

	if ncxPath == "" {
		return "", nil, fmt.Errorf("no NCX file found in EPUB")
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || path.Base(f.Name) == path.Base(ncxPath) {
			rc, err := f.Open()
			if err != nil {
				return "", nil, err
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			return f.Name, data, err
		}
	}

	return "", nil, fmt.Errorf("NCX file %s not found in archive", ncxPath)
}

// flattenNavPoints turns the nested navMap into document-ordered entries
// whose fragments are rewritten relative to the package document.
func flattenNavPoints(points []navPoint, ncxDir, opfDir string, level int) []TOCEntry {
	var entries []TOCEntry

	for _, np := range points {
		src := strings.TrimSpace(np.Content.Src)
		if src != "" {
			entries = append(entries, TOCEntry{
				Label:    strings.TrimSpace(np.Label.Text),
				Fragment: relHref(opfDir, joinHref(ncxDir, src)),
				Level:    level,
			})
		}
		if len(np.Children) > 0 {
			entries = append(entries, flattenNavPoints(np.Children, ncxDir, opfDir, level+1)...)
		}
	}

	return entries
}

// joinHref resolves href against dir, keeping any "#id" suffix intact.
func joinHref(dir, href string) string {
	file, frag := splitFragment(href)
	joined := path.Join(dir, file)
	if frag != "" {
		joined += "#" + frag
	}
	return joined
}

// relHref makes an archive path relative to the package directory.
func relHref(opfDir, full string) string {
	if opfDir == "." || opfDir == "" {
		return full
	}
	return strings.TrimPrefix(full, opfDir+"/")
}

func splitFragment(href string) (file, frag string) {
	if i := strings.Index(href, "#"); i != -1 {
		return href[:i], href[i+1:]
	}
	return href, ""
}
