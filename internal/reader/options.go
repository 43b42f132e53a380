package reader

import (
	"fmt"
	"strings"
)

// Option bounds.
const (
	MinFontSize   = 12
	MaxFontSize   = 32
	MinBrightness = 50
	MaxBrightness = 150
	MinContrast   = 50
	MaxContrast   = 150
	MinPadding    = 0
	MaxPadding    = 64
)

// OptionSteps are the increments the option controls move by.
var OptionSteps = struct {
	FontSize, Brightness, Contrast, Padding int
}{1, 5, 5, 4}

// Options are the display parameters the rendering surface applies.
type Options struct {
	FontSize   int    `toml:"font_size"`
	Brightness int    `toml:"brightness"`
	Contrast   int    `toml:"contrast"`
	Padding    int    `toml:"padding"`
	FontFamily string `toml:"font_family"`
}

// DefaultOptions returns the options a fresh session starts with.
func DefaultOptions() Options {
	return Options{
		FontSize:   16,
		Brightness: 100,
		Contrast:   150,
		Padding:    16,
		FontFamily: "Inter",
	}
}

// OptionsPatch is a partial update; nil fields are left untouched.
type OptionsPatch struct {
	FontSize   *int
	Brightness *int
	Contrast   *int
	Padding    *int
	FontFamily *string
}

// Clamp forces every numeric field into its domain. An empty font family
// falls back to the default one.
func (o Options) Clamp() Options {
	o.FontSize = clamp(o.FontSize, MinFontSize, MaxFontSize)
	o.Brightness = clamp(o.Brightness, MinBrightness, MaxBrightness)
	o.Contrast = clamp(o.Contrast, MinContrast, MaxContrast)
	o.Padding = clamp(o.Padding, MinPadding, MaxPadding)
	if strings.TrimSpace(o.FontFamily) == "" {
		o.FontFamily = DefaultOptions().FontFamily
	}
	return o
}

// Apply merges p into o field by field and clamps the result.
func (o Options) Apply(p OptionsPatch) Options {
	if p.FontSize != nil {
		o.FontSize = *p.FontSize
	}
	if p.Brightness != nil {
		o.Brightness = *p.Brightness
	}
	if p.Contrast != nil {
		o.Contrast = *p.Contrast
	}
	if p.Padding != nil {
		o.Padding = *p.Padding
	}
	if p.FontFamily != nil {
		o.FontFamily = *p.FontFamily
	}
	return o.Clamp()
}

// CSS renders the options as the presentation parameters a stylesheet would use.
func (o Options) CSS() string {
	return fmt.Sprintf("font-size: %dpx; filter: brightness(%d%%) contrast(%d%%); padding: %dpx; font-family: %s",
		o.FontSize, o.Brightness, o.Contrast, o.Padding, o.FontFamily)
}

// Int and String build patch fields inline.
func Int(v int) *int          { return &v }
func String(v string) *string { return &v }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
