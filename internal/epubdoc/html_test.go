package epubdoc

import (
	"strings"
	"testing"
)

func TestExtractBlocks(t *testing.T) {
	htmlContent := `
	<html>
		<head><title>Test</title><style>p { color: red }</style></head>
		<body>
			<h1>Chapter 1</h1>
			<p>This is the <b>first</b> paragraph.</p>
			<p>
				This is the second paragraph
				with a newline.
			</p>
			<div id="later">Some <span>nested</span> text.</div>
			<script>var x = 1;</script>
		</body>
	</html>
	`

	blocks, err := extractBlocks(strings.NewReader(htmlContent))
	if err != nil {
		t.Fatalf("extractBlocks: %v", err)
	}

	want := []block{
		{text: "Chapter 1"},
		{text: "This is the first paragraph."},
		{text: "This is the second paragraph with a newline."},
		{anchor: "later"},
		{text: "Some nested text."},
	}
	if len(blocks) != len(want) {
		t.Fatalf("Expected %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i, b := range blocks {
		if b != want[i] {
			t.Errorf("Block %d: expected %+v, got %+v", i, want[i], b)
		}
	}
}
