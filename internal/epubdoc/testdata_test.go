package epubdoc

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const packageOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:identifier id="bookid">test-1</dc:identifier>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="c1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="c1"/>
    <itemref idref="c2"/>
  </spine>
</package>`

const tocNCX = `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text> Chapter One </text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="n2" playOrder="2">
        <navLabel><text>Second Part</text></navLabel>
        <content src="text/ch1.xhtml#part2"/>
      </navPoint>
    </navPoint>
    <navPoint id="n3" playOrder="3">
      <navLabel><text>Chapter Two</text></navLabel>
      <content src="text/ch2.xhtml"/>
    </navPoint>
    <navPoint id="n4" playOrder="4">
      <navLabel><text>Nowhere</text></navLabel>
      <content src="text/missing.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func chapterXHTML(title string, paragraphs int, anchorAt int) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?><html xmlns="http://www.w3.org/1999/xhtml"><head><title>`)
	sb.WriteString(title)
	sb.WriteString(`</title><style>p{margin:0}</style></head><body><h1>`)
	sb.WriteString(title)
	sb.WriteString(`</h1>`)
	for i := 0; i < paragraphs; i++ {
		if i == anchorAt {
			sb.WriteString(`<h2 id="part2">Second Part</h2>`)
		}
		sb.WriteString(`<p>It was the best of times, it was the worst of times, it was the age of wisdom.</p>`)
	}
	sb.WriteString(`</body></html>`)
	return sb.String()
}

func testBookFiles() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      packageOPF,
		"OEBPS/toc.ncx":          tocNCX,
		"OEBPS/text/ch1.xhtml":   chapterXHTML("Chapter One", 8, 5),
		"OEBPS/text/ch2.xhtml":   chapterXHTML("Chapter Two", 3, -1),
	}
}

// buildEPUB zips files into an in-memory archive, mimetype first.
func buildEPUB(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	write := func(name, content string) {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildEPUB: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("buildEPUB: write %s: %v", name, err)
		}
	}
	if mt, ok := files["mimetype"]; ok {
		write("mimetype", mt)
	}
	for name, content := range files {
		if name != "mimetype" {
			write(name, content)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildEPUB: close writer: %v", err)
	}
	return buf.Bytes()
}

func openTestBook(t *testing.T, files map[string]string) *Book {
	t.Helper()
	data := buildEPUB(t, files)
	b, err := Open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(b.Destroy)
	return b
}
