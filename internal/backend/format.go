package backend

import (
	"path/filepath"
	"strings"
)

// Factory creates a fresh, unloaded backend.
type Factory func() Backend

type format struct {
	kind       Kind
	name       string
	extensions []string
	factory    Factory
}

var registry []format

// Register adds a backend variant for the given extensions.
func Register(kind Kind, name string, extensions []string, factory Factory) {
	registry = append(registry, format{kind: kind, name: name, extensions: extensions, factory: factory})
}

// KindOf selects a backend from the file name's extension alone. Unknown
// extensions are read as text.
func KindOf(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range registry {
		for _, e := range f.extensions {
			if ext == e {
				return f.kind
			}
		}
	}
	return Text
}

// New creates an unloaded backend of the given kind.
func New(kind Kind) Backend {
	for _, f := range registry {
		if f.kind == kind {
			return f.factory()
		}
	}
	return NewText(false)
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.name+" ("+strings.Join(f.extensions, ", ")+")")
	}
	return out
}

// Extensions lists every registered extension.
func Extensions() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.extensions...)
	}
	return out
}
