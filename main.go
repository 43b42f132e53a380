//go:build !gui

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/x7dl8p/novel-reader/internal/backend"
	"github.com/x7dl8p/novel-reader/internal/fonts"
	"github.com/x7dl8p/novel-reader/internal/session"
)

func main() {
	s := parseFlags("novel-reader", "novel-reader - Terminal Document Reader")

	var logOut io.Writer
	if s.Log.File != "" {
		f, err := tea.LogToFile(s.Log.File, "novel-reader")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to open log file '%s': %v\n", s.Log.File, err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	level, _ := s.Log.SlogLevel()
	log := newLogger(logOut, level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := fonts.NewLoader(nil, log)
	ctrl := newController(s, log, loader)
	m := newModel(ctx, s, ctrl, fonts.NewCatalog(), log)
	m.startup = startupFontCmds(ctx, s, ctrl, loader)

	if s.file != "" {
		if _, err := os.Stat(s.file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to read file '%s': %v\n", s.file, err)
			os.Exit(1)
		}
		m.path = s.file
		m.startup = append([]session.Cmd{openCmd(ctx, s, ctrl, backend.OpenLocal(s.file))}, m.startup...)
	} else {
		m.focus = paneInput
		m.inputKind = inputOpen
		m.input.Placeholder = "Path to a .txt, .md, .epub or .pdf file"
		m.input.Focus()
	}

	log.Info("starting", "version", version, "file", s.file)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctrl.Dispose()
}
