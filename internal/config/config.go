// Package config reads the optional configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/x7dl8p/novel-reader/internal/reader"
)

const (
	appName  = "novel-reader"
	fileName = "config.toml"
)

// Font is a family to import at startup.
type Font struct {
	Family string `toml:"family"`
	URL    string `toml:"url"`
}

type Fonts struct {
	Dir     string `toml:"dir"`
	Preload bool   `toml:"preload"`
	Custom  []Font `toml:"custom"`
}

type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type Reader struct {
	FoldPreamble bool `toml:"fold_preamble"`
	Watch        bool `toml:"watch"`
}

// Config is the decoded configuration file.
type Config struct {
	Reader  Reader         `toml:"reader"`
	Options reader.Options `toml:"options"`
	Fonts   Fonts          `toml:"fonts"`
	Log     Log            `toml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Options: reader.DefaultOptions(),
		Fonts:   Fonts{Dir: filepath.Join(Dir(), "fonts")},
		Log:     Log{Level: "info"},
	}
}

// Dir returns XDG_CONFIG_HOME/novel-reader or ~/.config/novel-reader
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// Path returns the default location of the configuration file.
func Path() string { return filepath.Join(Dir(), fileName) }

// Load reads the file at path, or the default location when path is empty.
// A missing file at the default location is not an error. Unknown keys are.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.Options = cfg.Options.Clamp()
	cfg.Fonts.Dir = expandHome(cfg.Fonts.Dir)
	cfg.Log.File = expandHome(cfg.Log.File)
	for i, f := range cfg.Fonts.Custom {
		if f.Family == "" || f.URL == "" {
			return Config{}, fmt.Errorf("config %s: fonts.custom[%d] needs both family and url", path, i)
		}
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
