// Package fonts fetches and registers font families for the reading surface.
package fonts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/image/font/sfnt"

	"github.com/x7dl8p/novel-reader/internal/reader"
)

// DefaultFamilies are offered by the option controls out of the box.
var DefaultFamilies = []string{
	"Inter",
	"Georgia",
	"Times New Roman",
	"Arial",
	"Verdana",
	"Helvetica",
	"JetBrains Mono",
	"Roboto",
	"Open Sans",
	"Merriweather",
}

// PreloadFamilies are loaded from the font directory at startup.
var PreloadFamilies = []string{"Inter", "JetBrains Mono", "Merriweather", "Roboto", "Georgia"}

// maxFontSize bounds a single download.
const maxFontSize = 32 << 20

// Loader reads TrueType and OpenType fonts from URLs or local paths.
type Loader struct {
	client *http.Client
	log    *slog.Logger

	mu       sync.Mutex
	families map[string]face
}

type face struct {
	font *sfnt.Font
	data []byte
}

// NewLoader creates a Loader. A nil client means http.DefaultClient.
func NewLoader(client *http.Client, log *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{client: client, log: log, families: make(map[string]face)}
}

// Load fetches the font at url and registers it as family. Failures are
// *reader.FontLoadError.
func (l *Loader) Load(ctx context.Context, family, url string) error {
	data, err := l.fetch(ctx, url)
	if err != nil {
		return &reader.FontLoadError{Family: family, URL: url, Err: err}
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return &reader.FontLoadError{Family: family, URL: url, Err: fmt.Errorf("parse font: %w", err)}
	}

	var buf sfnt.Buffer
	name, _ := f.Name(&buf, sfnt.NameIDFamily)
	l.log.Info("font loaded", "family", family, "name", name, "glyphs", f.NumGlyphs(), "url", url)

	l.mu.Lock()
	l.families[family] = face{font: f, data: data}
	l.mu.Unlock()
	return nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		path := strings.TrimPrefix(url, "file://")
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFontSize {
		return nil, fmt.Errorf("font larger than %d bytes", maxFontSize)
	}
	return data, nil
}

// Font returns a registered family.
func (l *Loader) Font(family string) (*sfnt.Font, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.families[family]
	return f.font, ok
}

// Data returns the font file a family was loaded from.
func (l *Loader) Data(family string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.families[family]
	return f.data, ok
}

// Registered lists the loaded families in sorted order.
func (l *Loader) Registered() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.families))
	for name := range l.families {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Preload loads each family from dir/<file-name>.ttf. Missing or broken
// files are logged and returned; the rest still load.
func (l *Loader) Preload(ctx context.Context, dir string, families []string) []error {
	var errs []error
	for _, family := range families {
		path := filepath.Join(dir, FileName(family)+".ttf")
		if err := l.Load(ctx, family, path); err != nil {
			l.log.Warn("preload failed", "family", family, "err", err)
			errs = append(errs, err)
		}
	}
	return errs
}

// FileName turns a family name into the lower-case, dash-separated form its
// files are stored under ("JetBrains Mono" -> "jetbrains-mono").
func FileName(family string) string {
	return strings.Join(strings.Fields(strings.ToLower(family)), "-")
}

// Catalog is the list of families the option controls offer. Imported
// families are appended once.
type Catalog struct {
	mu       sync.Mutex
	families []string
}

// NewCatalog returns a catalog of DefaultFamilies.
func NewCatalog() *Catalog {
	return &Catalog{families: slices.Clone(DefaultFamilies)}
}

// Add appends family unless it is already listed.
func (c *Catalog) Add(family string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.families, family) {
		c.families = append(c.families, family)
	}
}

// Families returns the catalog in display order.
func (c *Catalog) Families() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.families)
}

// Index returns the position of family, or -1.
func (c *Catalog) Index(family string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Index(c.families, family)
}
