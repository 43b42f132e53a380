//go:build gui

package main

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/x7dl8p/novel-reader/internal/backend"
	"github.com/x7dl8p/novel-reader/internal/fonts"
	"github.com/x7dl8p/novel-reader/internal/reader"
	"github.com/x7dl8p/novel-reader/internal/session"
	"github.com/x7dl8p/novel-reader/internal/watch"
)

// uriFile reads a document picked in a file dialog.
type uriFile struct{ uri fyne.URI }

func (f uriFile) Name() string                 { return f.uri.Name() }
func (f uriFile) Open() (io.ReadCloser, error) { return storage.Reader(f.uri) }

// readerTheme applies the display options to the reading surface.
type readerTheme struct {
	fyne.Theme
	opts   reader.Options
	loader *fonts.Loader
}

func (t *readerTheme) Color(n fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	if n == theme.ColorNameForeground {
		return color.Gray{Y: grayLevel(t.opts)}
	}
	return t.Theme.Color(n, v)
}

func (t *readerTheme) Size(n fyne.ThemeSizeName) float32 {
	switch n {
	case theme.SizeNameText:
		return float32(t.opts.FontSize)
	case theme.SizeNameInnerPadding:
		return float32(t.opts.Padding)
	}
	return t.Theme.Size(n)
}

func (t *readerTheme) Font(s fyne.TextStyle) fyne.Resource {
	if data, ok := t.loader.Data(t.opts.FontFamily); ok && !s.Monospace {
		return fyne.NewStaticResource(fonts.FileName(t.opts.FontFamily)+".ttf", data)
	}
	return t.Theme.Font(s)
}

type gui struct {
	ctx      context.Context
	settings settings
	ctrl     *session.Controller
	loader   *fonts.Loader
	catalog  *fonts.Catalog
	log      *slog.Logger

	win         fyne.Window
	content     *widget.Label
	scroll      *container.Scroll
	surface     *container.ThemeOverride
	theme       *readerTheme
	status      *widget.Label
	chapterList *widget.List
	markList    *widget.List
	fontSelect  *widget.Select
	sliders     []*widget.Slider

	selectedMark int

	watchMu sync.Mutex
	watcher *watch.Watcher
}

// run executes c off the main goroutine and hands its result back to it.
func (g *gui) run(c session.Cmd) {
	if c == nil {
		return
	}
	go func() {
		msg := c()
		if msg == nil {
			return
		}
		fyne.Do(func() { g.handle(msg) })
	}()
}

func (g *gui) handle(msg session.Msg) {
	next, err := g.ctrl.Handle(msg)
	g.run(next)
	if err != nil {
		g.log.Warn("operation failed", "err", err)
		g.status.SetText(err.Error())
	}
	switch msg := msg.(type) {
	case session.LoadedMsg:
		if err == nil && g.ctrl.State() == session.Ready {
			g.status.SetText("Opened " + msg.Name)
			g.scroll.ScrollToTop()
		}
	case session.FontMsg:
		if err == nil {
			g.catalog.Add(msg.Family)
			g.fontSelect.Options = g.catalog.Families()
			g.fontSelect.Refresh()
			g.status.SetText("Font " + msg.Family + " loaded")
		}
	case session.NavigatedMsg:
		g.scroll.ScrollToTop()
	}
	g.refresh()
}

func (g *gui) open(f backend.File) {
	g.status.SetText("Opening " + f.Name() + "…")
	g.run(openCmd(g.ctx, g.settings, g.ctrl, f))
}

func (g *gui) reload() {
	if f := g.ctrl.File(); f != nil {
		g.status.SetText("Reloading " + f.Name() + "…")
	}
	g.run(reloadCmd(g.ctx, g.settings, g.ctrl))
}

func (g *gui) turn(delta int) {
	cmd, err := g.ctrl.Turn(g.ctx, delta)
	if err != nil {
		g.status.SetText(err.Error())
	}
	g.run(cmd)
}

func (g *gui) navigate(addr reader.Address) {
	cmd, err := g.ctrl.NavigateTo(g.ctx, addr)
	if err != nil {
		g.status.SetText(err.Error())
	}
	g.run(cmd)
}

func (g *gui) bookmark() {
	bm, err := g.ctrl.AddBookmark("")
	if err != nil {
		g.status.SetText(err.Error())
		return
	}
	g.status.SetText("Bookmarked " + bm.Title)
	g.refresh()
}

// cells estimates the character grid the surface can show.
func (g *gui) cells() (int, int) {
	size := g.scroll.Size()
	fs := float32(g.ctrl.Session().Options.FontSize)
	if size.Width <= 0 || size.Height <= 0 {
		return 72, 30
	}
	return max(int(size.Width/(fs*0.6)), 20), max(int(size.Height/(fs*1.4)), 5)
}

func (g *gui) refresh() {
	s := g.ctrl.Session()
	g.theme.opts = s.Options

	w, h := g.cells()
	text, err := g.ctrl.View(w, h)
	if err != nil {
		g.status.SetText(err.Error())
	}
	switch g.ctrl.State() {
	case session.Loading:
		text = "Loading " + s.Name + "…"
	case session.Empty:
		text = "Open a .txt, .md, .epub or .pdf file to start reading."
	}
	g.content.SetText(text)
	g.surface.Refresh()

	title := "novel-reader"
	if i := g.ctrl.CurrentChapter(); i >= 0 {
		title = fmt.Sprintf("%s - %s (%d/%d)", s.Name, s.Chapters[i].Title, i+1, len(s.Chapters))
		g.chapterList.Select(i)
	}
	g.win.SetTitle(title)
	g.chapterList.Refresh()
	g.markList.Refresh()

	values := g.optionValues()
	for i, sl := range g.sliders {
		if int(sl.Value) != values[i] {
			sl.SetValue(float64(values[i]))
		}
	}
	if g.fontSelect.Selected != s.Options.FontFamily {
		g.fontSelect.SetSelected(s.Options.FontFamily)
	}
}

func (g *gui) slider(label string, lo, hi, step int, patch func(v int) reader.OptionsPatch) fyne.CanvasObject {
	sl := widget.NewSlider(float64(lo), float64(hi))
	sl.Step = float64(step)
	idx := len(g.sliders)
	sl.OnChanged = func(v float64) {
		if int(v) == g.optionValues()[idx] {
			return
		}
		g.ctrl.UpdateOptions(patch(int(v)))
		g.refresh()
	}
	g.sliders = append(g.sliders, sl)
	return container.NewBorder(nil, nil, widget.NewLabel(label), nil, sl)
}

// optionValues lists the numeric options in slider order.
func (g *gui) optionValues() []int {
	o := g.ctrl.Session().Options
	return []int{o.FontSize, o.Brightness, o.Contrast, o.Padding}
}

func (g *gui) optionsPanel() fyne.CanvasObject {
	steps := reader.OptionSteps
	sliders := []fyne.CanvasObject{
		g.slider("Font size", reader.MinFontSize, reader.MaxFontSize, steps.FontSize,
			func(v int) reader.OptionsPatch { return reader.OptionsPatch{FontSize: reader.Int(v)} }),
		g.slider("Brightness", reader.MinBrightness, reader.MaxBrightness, steps.Brightness,
			func(v int) reader.OptionsPatch { return reader.OptionsPatch{Brightness: reader.Int(v)} }),
		g.slider("Contrast", reader.MinContrast, reader.MaxContrast, steps.Contrast,
			func(v int) reader.OptionsPatch { return reader.OptionsPatch{Contrast: reader.Int(v)} }),
		g.slider("Padding", reader.MinPadding, reader.MaxPadding, steps.Padding,
			func(v int) reader.OptionsPatch { return reader.OptionsPatch{Padding: reader.Int(v)} }),
	}
	g.fontSelect = widget.NewSelect(g.catalog.Families(), func(family string) {
		if family != g.ctrl.Session().Options.FontFamily {
			g.ctrl.UpdateOptions(reader.OptionsPatch{FontFamily: reader.String(family)})
			g.refresh()
		}
	})
	importFont := widget.NewButton("Import font…", g.importFont)

	box := container.NewVBox(widget.NewLabel("Options"))
	box.Objects = append(box.Objects, sliders...)
	box.Add(container.NewBorder(nil, nil, widget.NewLabel("Font"), importFont, g.fontSelect))
	return box
}

func (g *gui) importFont() {
	family := widget.NewEntry()
	url := widget.NewEntry()
	url.SetPlaceHolder("https://… or /path/to/font.ttf")
	dialog.ShowForm("Import font", "Load", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Family", family),
		widget.NewFormItem("URL", url),
	}, func(ok bool) {
		if !ok || family.Text == "" || url.Text == "" {
			return
		}
		g.status.SetText("Loading font " + family.Text + "…")
		g.run(g.ctrl.LoadFont(g.ctx, family.Text, url.Text))
	}, g.win)
}

func (g *gui) openDialog() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			g.log.Error("open dialog error", slog.Any("err", err))
			dialog.ShowError(err, g.win)
			return
		}
		if rc == nil {
			return
		}
		rc.Close()
		g.open(uriFile{uri: rc.URI()})
		if rc.URI().Scheme() == "file" {
			g.watch(rc.URI().Path())
		}
	}, g.win)
	fd.SetFilter(storage.NewExtensionFileFilter(backend.Extensions()))
	fd.Show()
}

// watch reloads path whenever its content changes, when -watch is set.
func (g *gui) watch(path string) {
	if !g.settings.Reader.Watch {
		return
	}
	g.watchMu.Lock()
	defer g.watchMu.Unlock()
	if g.watcher != nil {
		g.watcher.Close()
	}
	w, err := watch.New(path, watch.DefaultDebounce, g.log)
	if err != nil {
		g.log.Warn("cannot watch document", "path", path, "err", err)
		return
	}
	g.watcher = w
	fp, _ := watch.Fingerprint(path)
	go func() {
		for range w.Changes() {
			next, err := watch.Fingerprint(path)
			if err != nil || next == fp {
				continue
			}
			fp = next
			fyne.Do(g.reload)
		}
	}()
}

func (g *gui) stopWatch() {
	g.watchMu.Lock()
	defer g.watchMu.Unlock()
	if g.watcher != nil {
		g.watcher.Close()
		g.watcher = nil
	}
}

func (g *gui) build(a fyne.App) {
	g.win = a.NewWindow("novel-reader")
	g.status = widget.NewLabel("")

	g.content = widget.NewLabel("")
	g.content.Wrapping = fyne.TextWrapWord
	g.scroll = container.NewVScroll(g.content)
	g.theme = &readerTheme{Theme: theme.DefaultTheme(), opts: g.ctrl.Session().Options, loader: g.loader}
	g.surface = container.NewThemeOverride(g.scroll, g.theme)

	g.chapterList = widget.NewList(
		func() int { return len(g.ctrl.Session().Chapters) },
		func() fyne.CanvasObject { return widget.NewLabel("Chapter") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			chapters := g.ctrl.Session().Chapters
			if id < len(chapters) {
				obj.(*widget.Label).SetText(chapters[id].Title)
			}
		},
	)
	g.chapterList.OnSelected = func(id widget.ListItemID) {
		chapters := g.ctrl.Session().Chapters
		if id < len(chapters) && id != g.ctrl.CurrentChapter() {
			g.navigate(chapters[id].Address)
		}
	}

	g.selectedMark = -1
	g.markList = widget.NewList(
		func() int { return len(g.ctrl.Session().Bookmarks) },
		func() fyne.CanvasObject {
			return container.NewVBox(widget.NewLabel("Title"), widget.NewLabel("Address"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			marks := g.ctrl.Session().Bookmarks
			if id >= len(marks) {
				return
			}
			vbox := obj.(*fyne.Container)
			vbox.Objects[0].(*widget.Label).SetText(marks[id].Title)
			vbox.Objects[1].(*widget.Label).SetText(marks[id].Address.String() + " · " +
				marks[id].CreatedAt.Time().Format("15:04:05"))
		},
	)
	g.markList.OnSelected = func(id widget.ListItemID) {
		marks := g.ctrl.Session().Bookmarks
		if id < len(marks) {
			g.selectedMark = id
			g.navigate(marks[id].Address)
		}
	}
	removeMark := widget.NewButton("Remove", func() {
		marks := g.ctrl.Session().Bookmarks
		if g.selectedMark >= 0 && g.selectedMark < len(marks) {
			g.ctrl.RemoveBookmark(marks[g.selectedMark].CreatedAt)
			g.selectedMark = -1
			g.markList.UnselectAll()
			g.refresh()
		}
	})

	side := container.NewAppTabs(
		container.NewTabItem("Chapters", g.chapterList),
		container.NewTabItem("Bookmarks", container.NewBorder(nil, removeMark, nil, nil, g.markList)),
		container.NewTabItem("Options", container.NewVScroll(g.optionsPanel())),
	)

	toolbar := container.NewHBox(
		widget.NewButton("Open…", g.openDialog),
		widget.NewButton("◀ Prev", func() { g.turn(-1) }),
		widget.NewButton("Next ▶", func() { g.turn(1) }),
		widget.NewButton("Bookmark", g.bookmark),
	)

	reading := container.NewBorder(toolbar, g.status, nil, nil, g.surface)
	split := container.NewHSplit(side, reading)
	split.Offset = 0.3
	g.win.SetContent(split)

	g.win.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeyLeft:
			g.turn(-1)
		case fyne.KeyRight:
			g.turn(1)
		case fyne.KeyB:
			g.bookmark()
		case fyne.KeyF:
			g.win.SetFullScreen(!g.win.FullScreen())
		case fyne.KeyQ:
			a.Quit()
		}
	})

	g.win.SetOnClosed(func() {
		g.stopWatch()
		g.ctrl.Dispose()
	})
	g.win.Resize(fyne.NewSize(1000, 700))
	g.refresh()
}

func main() {
	s := parseFlags("novel-reader-gui", "novel-reader - GUI Document Reader")

	var logOut io.Writer
	if s.Log.File != "" {
		f, err := os.OpenFile(s.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
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
	g := &gui{
		ctx:      ctx,
		settings: s,
		ctrl:     newController(s, log, loader),
		loader:   loader,
		catalog:  fonts.NewCatalog(),
		log:      log,
	}

	a := app.New()
	g.build(a)
	for _, c := range startupFontCmds(ctx, s, g.ctrl, loader) {
		g.run(c)
	}
	if s.file != "" {
		path, err := filepath.Abs(s.file)
		if err != nil {
			path = s.file
		}
		g.open(backend.OpenLocal(path))
		g.watch(path)
	}

	log.Info("starting", "version", version, "file", s.file)
	g.win.ShowAndRun()
}
