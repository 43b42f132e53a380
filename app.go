package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/x7dl8p/novel-reader/internal/backend"
	"github.com/x7dl8p/novel-reader/internal/config"
	"github.com/x7dl8p/novel-reader/internal/fonts"
	"github.com/x7dl8p/novel-reader/internal/reader"
	"github.com/x7dl8p/novel-reader/internal/session"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// settings are the configuration file merged with the command line.
type settings struct {
	config.Config
	file    string
	timeout time.Duration
}

func parseFlags(prog, title string) settings {
	configPath := flag.String("config", "", "Configuration file (default: "+config.Path()+")")
	fold := flag.Bool("fold-preamble", false, "Keep text before the first chapter heading in chapter 1")
	watchFile := flag.Bool("watch", false, "Reload the document when it changes on disk")
	timeout := flag.Duration("timeout", 0, "Give up loading a document after this long (0: never)")
	logFile := flag.String("log", "", "Write a debug log to this file")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", title)
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options] [file]\n\n", prog)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s novel.txt               Read a plain text novel\n", prog)
		fmt.Fprintf(os.Stderr, "  %s book.epub               Read an EPUB\n", prog)
		fmt.Fprintf(os.Stderr, "  %s -watch draft.md         Reload the draft on every save\n", prog)
		fmt.Fprintf(os.Stderr, "\nFormats:\n")
		for _, f := range backend.SupportedFormats() {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
		fmt.Fprintf(os.Stderr, "  Other extensions are read as text.\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("%s %s (commit: %s, built: %s)\n", prog, version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	s := settings{Config: cfg, file: flag.Arg(0), timeout: *timeout}
	if *fold {
		s.Reader.FoldPreamble = true
	}
	if *watchFile {
		s.Reader.Watch = true
	}
	if *logFile != "" {
		s.Log.File = *logFile
		s.Log.Level = "debug"
	}
	return s
}

// newLogger writes text records to w, or nowhere when w is nil.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newController(s settings, log *slog.Logger, loader *fonts.Loader) *session.Controller {
	fold := s.Reader.FoldPreamble
	factory := func(k backend.Kind) backend.Backend {
		if k == backend.Text {
			return backend.NewText(fold)
		}
		return backend.New(k)
	}
	return session.New(
		session.WithFactory(factory),
		session.WithLogger(log),
		session.WithDefaults(s.Options),
		session.WithFonts(loader),
	)
}

// loadContext bounds a document load by the configured timeout. The cancel
// func must be called once the load's Cmd has run.
func (s settings) loadContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

// openCmd starts loading f and releases the load context when done.
func openCmd(ctx context.Context, s settings, c *session.Controller, f backend.File) session.Cmd {
	lctx, cancel := s.loadContext(ctx)
	load := c.OpenFile(lctx, f)
	return func() session.Msg {
		defer cancel()
		return load()
	}
}

// reloadCmd opens the current document again under a fresh load context.
// It is nil when nothing was opened.
func reloadCmd(ctx context.Context, s settings, c *session.Controller) session.Cmd {
	lctx, cancel := s.loadContext(ctx)
	load := c.Reload(lctx)
	if load == nil {
		cancel()
		return nil
	}
	return func() session.Msg {
		defer cancel()
		return load()
	}
}

// startupFontCmds preloads the default families and imports the configured
// ones. Imported families are selected when they load.
func startupFontCmds(ctx context.Context, s settings, c *session.Controller, loader *fonts.Loader) []session.Cmd {
	var cmds []session.Cmd
	if s.Fonts.Preload {
		dir := s.Fonts.Dir
		cmds = append(cmds, func() session.Msg {
			return preloadedMsg{errs: loader.Preload(ctx, dir, fonts.PreloadFamilies)}
		})
	}
	for _, f := range s.Fonts.Custom {
		cmds = append(cmds, c.LoadFont(ctx, f.Family, f.URL))
	}
	return cmds
}

type preloadedMsg struct{ errs []error }

// grayLevel maps brightness and contrast onto the gray level of the text.
func grayLevel(o reader.Options) uint8 {
	level := 128 + (o.Contrast-reader.MinContrast)*127/(reader.MaxContrast-reader.MinContrast)
	return uint8(min(max(level*o.Brightness/100, 0), 255))
}
