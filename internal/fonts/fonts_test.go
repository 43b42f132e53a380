package fonts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/x7dl8p/novel-reader/internal/reader"
)

func fontServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/go.ttf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(goregular.TTF)
	})
	mux.HandleFunc("/junk.ttf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not a font"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadHTTP(t *testing.T) {
	srv := fontServer(t)
	l := NewLoader(srv.Client(), nil)

	if err := l.Load(context.Background(), "Go", srv.URL+"/go.ttf"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := l.Registered(); len(got) != 1 || got[0] != "Go" {
		t.Errorf("Registered() = %v", got)
	}
	if f, ok := l.Font("Go"); !ok || f.NumGlyphs() == 0 {
		t.Error("font not usable after Load")
	}
	if data, ok := l.Data("Go"); !ok || len(data) != len(goregular.TTF) {
		t.Error("font data not kept")
	}
}

func TestLoadFailures(t *testing.T) {
	srv := fontServer(t)
	tests := []struct {
		name string
		url  string
	}{
		{"not a font", srv.URL + "/junk.ttf"},
		{"not found", srv.URL + "/missing.ttf"},
		{"missing file", filepath.Join(t.TempDir(), "nope.ttf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader(srv.Client(), nil)
			err := l.Load(context.Background(), "Broken", tt.url)
			var fe *reader.FontLoadError
			if !errors.As(err, &fe) {
				t.Fatalf("Load = %v, want FontLoadError", err)
			}
			if fe.Family != "Broken" || fe.URL != tt.url {
				t.Errorf("error = %+v", fe)
			}
			if len(l.Registered()) != 0 {
				t.Error("failed font was registered")
			}
		})
	}
}

func TestLoadCanceled(t *testing.T) {
	srv := fontServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewLoader(srv.Client(), nil).Load(ctx, "Go", srv.URL+"/go.ttf")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load = %v, want context.Canceled", err)
	}
}

func TestPreload(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go-regular.ttf"), goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil, nil)
	errs := l.Preload(context.Background(), dir, []string{"Go Regular", "JetBrains Mono"})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	var fe *reader.FontLoadError
	if !errors.As(errs[0], &fe) || fe.Family != "JetBrains Mono" {
		t.Errorf("error = %v", errs[0])
	}
	if got := l.Registered(); len(got) != 1 || got[0] != "Go Regular" {
		t.Errorf("Registered() = %v", got)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct{ family, want string }{
		{"Inter", "inter"},
		{"JetBrains Mono", "jetbrains-mono"},
		{"Times  New Roman", "times-new-roman"},
		{" Open Sans ", "open-sans"},
	}
	for _, tt := range tests {
		if got := FileName(tt.family); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.family, got, tt.want)
		}
	}
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	n := len(c.Families())
	if n != len(DefaultFamilies) || c.Families()[0] != "Inter" {
		t.Fatalf("Families() = %v", c.Families())
	}
	c.Add("Go")
	c.Add("Go")
	c.Add("Georgia")
	if got := c.Families(); len(got) != n+1 || got[n] != "Go" {
		t.Errorf("Families() = %v", got)
	}
	if c.Index("Go") != n || c.Index("Comic Sans") != -1 {
		t.Error("Index mismatch")
	}
}
