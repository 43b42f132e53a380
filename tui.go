//go:build !gui

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/x7dl8p/novel-reader/internal/backend"
	"github.com/x7dl8p/novel-reader/internal/fonts"
	"github.com/x7dl8p/novel-reader/internal/reader"
	"github.com/x7dl8p/novel-reader/internal/session"
	"github.com/x7dl8p/novel-reader/internal/watch"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

type pane int

const (
	paneReader pane = iota
	paneChapters
	paneBookmarks
	paneOptions
	paneInput
)

type inputKind int

const (
	inputOpen inputKind = iota
	inputFont
	inputBookmark
)

const panelWidth = 36

var optionRows = []string{"Font size", "Brightness", "Contrast", "Padding", "Font"}

type item struct {
	title, desc string
	addr        reader.Address
	stamp       reader.Stamp
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

type fileChangedMsg struct{}

type model struct {
	ctx      context.Context
	settings settings
	ctrl     *session.Controller
	catalog  *fonts.Catalog
	log      *slog.Logger

	path        string
	watcher     *watch.Watcher
	fingerprint string

	viewport  viewport.Model
	chapters  list.Model
	bookmarks list.Model
	input     textinput.Model
	spinner   spinner.Model

	focus     pane
	inputKind inputKind
	optionRow int
	status    string
	errMsg    string
	width     int
	height    int
	quitting  bool
	startup   []session.Cmd
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), panelWidth, 20)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

func newModel(ctx context.Context, s settings, ctrl *session.Controller, catalog *fonts.Catalog, log *slog.Logger) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 1024
	ti.Cursor.SetMode(cursor.CursorStatic)

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return model{
		ctx:       ctx,
		settings:  s,
		ctrl:      ctrl,
		catalog:   catalog,
		log:       log,
		viewport:  viewport.New(80, 20),
		chapters:  newList("Chapters"),
		bookmarks: newList("Bookmarks"),
		input:     ti,
		spinner:   spin,
		width:     80,
		height:    24,
	}
}

// lift turns a session command into a bubbletea one.
func lift(c session.Cmd) tea.Cmd {
	if c == nil {
		return nil
	}
	return func() tea.Msg { return c() }
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	for _, c := range m.startup {
		cmds = append(cmds, lift(c))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m.refresh(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case session.LoadedMsg, session.NavigatedMsg, session.MovedMsg, session.FontMsg:
		return m.handle(msg)

	case preloadedMsg:
		if len(msg.errs) > 0 {
			m.status = fmt.Sprintf("%d default fonts unavailable", len(msg.errs))
		}
		return m, nil

	case fileChangedMsg:
		return m.fileChanged()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handle feeds a command result to the controller.
func (m model) handle(msg session.Msg) (tea.Model, tea.Cmd) {
	next, err := m.ctrl.Handle(msg)
	cmds := []tea.Cmd{lift(next)}
	if err != nil {
		m.errMsg = err.Error()
		m.log.Warn("operation failed", "err", err)
	}

	switch msg := msg.(type) {
	case session.LoadedMsg:
		if err == nil && msg.Generation == m.ctrl.Session().Generation && m.ctrl.State() == session.Ready {
			m.errMsg = ""
			m.status = "Opened " + msg.Name
			m.viewport.GotoTop()
			cmds = append(cmds, m.startWatch())
		}
	case session.FontMsg:
		if err == nil {
			m.catalog.Add(msg.Family)
			m.status = "Font " + msg.Family + " loaded"
		}
	case session.NavigatedMsg:
		m.viewport.GotoTop()
	}
	return m.refresh(), tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.focus {
	case paneInput:
		return m.inputKey(msg)
	case paneChapters:
		return m.chaptersKey(msg)
	case paneBookmarks:
		return m.bookmarksKey(msg)
	case paneOptions:
		return m.optionsKey(msg)
	}

	switch msg.String() {
	case "q", "Q":
		return m.quit()

	case "right", "l", "n":
		return m.turn(1)

	case "left", "h", "p":
		return m.turn(-1)

	case "c":
		m.focus = paneChapters
		return m.refresh(), nil

	case "b":
		m.focus = paneBookmarks
		return m.refresh(), nil

	case "o":
		m.focus = paneOptions
		return m.refresh(), nil

	case "m":
		return m.addBookmark("")

	case "M":
		return m.prompt(inputBookmark, "Bookmark title")

	case "f", "ctrl+o":
		return m.prompt(inputOpen, "Path to a .txt, .md, .epub or .pdf file")

	case "i":
		return m.prompt(inputFont, "Family name and URL, e.g. Lora https://example.com/lora.ttf")

	case "r":
		return m, lift(reloadCmd(m.ctx, m.settings, m.ctrl))

	case "y":
		return m.copyPosition()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) turn(delta int) (tea.Model, tea.Cmd) {
	cmd, err := m.ctrl.Turn(m.ctx, delta)
	if err != nil {
		m.errMsg = err.Error()
	}
	return m, lift(cmd)
}

func (m model) chaptersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "c", "q":
		m.focus = paneReader
		return m.refresh(), nil
	case "enter":
		it, ok := m.chapters.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		m.focus = paneReader
		cmd, err := m.ctrl.NavigateTo(m.ctx, it.addr)
		if err != nil {
			m.errMsg = err.Error()
		}
		return m.refresh(), lift(cmd)
	}
	var cmd tea.Cmd
	m.chapters, cmd = m.chapters.Update(msg)
	return m, cmd
}

func (m model) bookmarksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "b", "q":
		m.focus = paneReader
		return m.refresh(), nil
	case "enter":
		it, ok := m.bookmarks.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		m.focus = paneReader
		cmd, err := m.ctrl.NavigateTo(m.ctx, it.addr)
		if err != nil {
			m.errMsg = err.Error()
		}
		return m.refresh(), lift(cmd)
	case "d", "x", "delete":
		if it, ok := m.bookmarks.SelectedItem().(item); ok {
			m.ctrl.RemoveBookmark(it.stamp)
			m.status = "Removed bookmark " + it.title
		}
		return m.refresh(), nil
	}
	var cmd tea.Cmd
	m.bookmarks, cmd = m.bookmarks.Update(msg)
	return m, cmd
}

func (m model) optionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "o", "q":
		m.focus = paneReader
	case "up", "k":
		m.optionRow = (m.optionRow + len(optionRows) - 1) % len(optionRows)
	case "down", "j":
		m.optionRow = (m.optionRow + 1) % len(optionRows)
	case "left", "h", "-":
		m.adjustOption(-1)
	case "right", "l", "+", "=":
		m.adjustOption(1)
	}
	return m.refresh(), nil
}

// adjustOption moves the selected option one step in dir.
func (m *model) adjustOption(dir int) {
	o := m.ctrl.Session().Options
	var p reader.OptionsPatch
	switch m.optionRow {
	case 0:
		p.FontSize = reader.Int(o.FontSize + dir*reader.OptionSteps.FontSize)
	case 1:
		p.Brightness = reader.Int(o.Brightness + dir*reader.OptionSteps.Brightness)
	case 2:
		p.Contrast = reader.Int(o.Contrast + dir*reader.OptionSteps.Contrast)
	case 3:
		p.Padding = reader.Int(o.Padding + dir*reader.OptionSteps.Padding)
	case 4:
		families := m.catalog.Families()
		i := (m.catalog.Index(o.FontFamily) + dir + len(families)) % len(families)
		p.FontFamily = reader.String(families[i])
	}
	m.ctrl.UpdateOptions(p)
}

func (m model) prompt(kind inputKind, placeholder string) (tea.Model, tea.Cmd) {
	m.focus = paneInput
	m.inputKind = kind
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	return m, m.input.Focus()
}

func (m model) inputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.focus = paneReader
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.focus = paneReader
		return m.submit(value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit(value string) (tea.Model, tea.Cmd) {
	switch m.inputKind {
	case inputOpen:
		if value == "" {
			return m, nil
		}
		return m.open(value)

	case inputFont:
		fields := strings.Fields(value)
		if len(fields) < 2 {
			m.errMsg = "expected a family name followed by a URL"
			return m, nil
		}
		family := strings.Join(fields[:len(fields)-1], " ")
		m.status = "Loading font " + family
		return m, lift(m.ctrl.LoadFont(m.ctx, family, fields[len(fields)-1]))

	case inputBookmark:
		return m.addBookmark(value)
	}
	return m, nil
}

func (m model) open(path string) (tea.Model, tea.Cmd) {
	m.path = path
	m.errMsg = ""
	m.status = "Opening " + filepath.Base(path)
	cmd := openCmd(m.ctx, m.settings, m.ctrl, backend.OpenLocal(path))
	return m.refresh(), tea.Batch(lift(cmd), m.spinner.Tick)
}

func (m model) addBookmark(title string) (tea.Model, tea.Cmd) {
	bm, err := m.ctrl.AddBookmark(title)
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	m.status = "Bookmarked " + bm.Title
	return m.refresh(), nil
}

func (m model) copyPosition() (tea.Model, tea.Cmd) {
	s := m.ctrl.Session()
	if m.ctrl.State() != session.Ready {
		return m, nil
	}
	text := s.Name + " " + s.Current.String()
	if err := clipboardWrite(text); err != nil {
		m.errMsg = "copy failed: " + err.Error()
		return m, nil
	}
	m.status = "Copied " + text
	return m, nil
}

// startWatch begins watching the opened file when -watch is set.
func (m *model) startWatch() tea.Cmd {
	if !m.settings.Reader.Watch || m.path == "" {
		return nil
	}
	abs, err := filepath.Abs(m.path)
	if err != nil {
		return nil
	}
	m.fingerprint, _ = watch.Fingerprint(abs)
	if m.watcher != nil {
		if m.watcher.Path() == abs {
			return nil
		}
		m.watcher.Close()
	}
	w, err := watch.New(abs, watch.DefaultDebounce, m.log)
	if err != nil {
		m.log.Warn("cannot watch document", "path", abs, "err", err)
		return nil
	}
	m.watcher = w
	return waitForChange(w)
}

func waitForChange(w *watch.Watcher) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-w.Changes(); !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}

func (m model) fileChanged() (tea.Model, tea.Cmd) {
	if m.watcher == nil {
		return m, nil
	}
	wait := waitForChange(m.watcher)
	fp, err := watch.Fingerprint(m.watcher.Path())
	if err != nil || fp == m.fingerprint || m.ctrl.File() == nil {
		return m, wait
	}
	m.fingerprint = fp
	m.status = "Reloading " + m.ctrl.Session().Name
	return m, tea.Batch(wait, lift(reloadCmd(m.ctx, m.settings, m.ctrl)))
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.ctrl.Dispose()
	if m.watcher != nil {
		m.watcher.Close()
	}
	return m, tea.Quit
}

// bodyHeight is the height left for content between header and footer.
func (m model) bodyHeight() int {
	return max(m.height-3, 1)
}

func (m *model) resize() {
	h := m.bodyHeight()
	w := m.width
	if m.focus == paneChapters || m.focus == paneBookmarks || m.focus == paneOptions {
		w -= panelWidth + 4
	}
	m.viewport.Width = max(w, 10)
	m.viewport.Height = h
	m.chapters.SetSize(panelWidth, h-2)
	m.bookmarks.SetSize(panelWidth, h-2)
}

// refresh pulls the session into the widgets.
func (m model) refresh() model {
	m.resize()
	s := m.ctrl.Session()

	margin := s.Options.Padding / 8
	textWidth := max(m.viewport.Width-2*margin, 10)
	content, err := m.ctrl.View(textWidth, m.viewport.Height)
	if err != nil {
		m.errMsg = err.Error()
	}
	body := lipgloss.NewStyle().
		Foreground(textColor(s.Options)).
		Padding(0, margin).
		Render(wordwrap.String(content, textWidth))
	m.viewport.SetContent(body)

	items := make([]list.Item, len(s.Chapters))
	for i, ch := range s.Chapters {
		items[i] = item{title: truncate(ch.Title, panelWidth-4), desc: ch.Address.String(), addr: ch.Address}
	}
	m.chapters.SetItems(items)
	if i := m.ctrl.CurrentChapter(); i >= 0 && m.focus != paneChapters {
		m.chapters.Select(i)
	}

	marks := make([]list.Item, len(s.Bookmarks))
	for i, bm := range s.Bookmarks {
		marks[i] = item{
			title: truncate(bm.Title, panelWidth-4),
			desc:  bm.Address.String() + " · " + bm.CreatedAt.Time().Format("15:04:05"),
			addr:  bm.Address,
			stamp: bm.CreatedAt,
		}
	}
	m.bookmarks.SetItems(marks)
	return m
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func textColor(o reader.Options) lipgloss.Color {
	level := grayLevel(o)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", level, level, level))
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	s := m.ctrl.Session()

	header := titleStyle.Render(truncate(m.title(s), m.width))

	var body string
	switch m.ctrl.State() {
	case session.Loading:
		body = m.spinner.View() + " Loading " + s.Name + "…"
	case session.Ready:
		body = m.viewport.View()
	default:
		body = statusStyle.Render("No document open. Press F to open one.")
	}
	switch m.focus {
	case paneChapters:
		body = lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(m.chapters.View()), body)
	case paneBookmarks:
		body = lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(m.bookmarks.View()), body)
	case paneOptions:
		body = lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(m.optionsView(s.Options)), body)
	}
	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)

	var footer string
	switch {
	case m.focus == paneInput:
		footer = m.input.View()
	case m.errMsg != "":
		footer = errorStyle.Render(truncate(m.errMsg, m.width))
	case m.status != "":
		footer = statusStyle.Render(truncate(m.status, m.width))
	}
	controls := controlsStyle.Render(truncate("←/→: turn  C: chapters  B: bookmarks  M: mark  O: options  F: open  I: font  Y: copy  Q: quit", m.width))

	return header + "\n" + body + "\n" + footer + "\n" + controls
}

func (m model) title(s session.Session) string {
	if m.ctrl.State() != session.Ready {
		return "novel-reader"
	}
	t := s.Name
	if i := m.ctrl.CurrentChapter(); i >= 0 {
		t += " | " + s.Chapters[i].Title
	}
	return fmt.Sprintf("%s | %d/%d", t, m.ctrl.CurrentChapter()+1, len(s.Chapters))
}

func (m model) optionsView(o reader.Options) string {
	values := []string{
		fmt.Sprintf("%d", o.FontSize),
		fmt.Sprintf("%d%%", o.Brightness),
		fmt.Sprintf("%d%%", o.Contrast),
		fmt.Sprintf("%d", o.Padding),
		o.FontFamily,
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Options") + "\n\n")
	for i, name := range optionRows {
		line := fmt.Sprintf("%-11s %s", name, truncate(values[i], panelWidth-14))
		if i == m.optionRow {
			line = selectedStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + controlsStyle.Render(truncate(o.CSS(), panelWidth)))
	return sb.String()
}
