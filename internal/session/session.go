// Package session owns the reading session: which document is open, its
// chapters, the current position, bookmarks and display options.
//
// A Controller is driven from a single event loop. Operations that block
// return a Cmd; the frontend runs it on another goroutine and hands the
// resulting Msg back to Handle. Every load gets a new generation, and results
// carrying an older generation are discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/x7dl8p/novel-reader/internal/backend"
	"github.com/x7dl8p/novel-reader/internal/reader"
)

// State is the lifecycle state of a Controller.
type State int

const (
	Empty State = iota
	Loading
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	default:
		return "empty"
	}
}

// Session is a snapshot of the reading state.
type Session struct {
	Kind       backend.Kind
	Name       string
	Chapters   []reader.Chapter
	Current    reader.Address
	Bookmarks  []reader.Bookmark
	Options    reader.Options
	Generation uint64
}

func (s Session) clone() Session {
	s.Chapters = append([]reader.Chapter(nil), s.Chapters...)
	s.Bookmarks = append([]reader.Bookmark(nil), s.Bookmarks...)
	return s
}

// FontLoader makes a font family available to the renderer.
type FontLoader interface {
	Load(ctx context.Context, family, url string) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithFactory replaces backend.New as the source of fresh backends.
func WithFactory(f func(backend.Kind) backend.Backend) Option {
	return func(c *Controller) { c.factory = f }
}

// WithLogger sets the logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithDefaults sets the options every new session starts with.
func WithDefaults(o reader.Options) Option {
	return func(c *Controller) { c.defaults = o.Clamp() }
}

// WithFonts sets the loader used by LoadFont.
func WithFonts(l FontLoader) Option {
	return func(c *Controller) { c.fonts = l }
}

// WithClock sets the clock bookmark stamps are read from.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.stamper = reader.NewStamper(now) }
}

type navOp struct {
	ctx context.Context
	run func(context.Context, backend.Backend) error
}

// Controller mediates between the frontend and the active backend. It is not
// safe for concurrent use; call it from the event loop only.
type Controller struct {
	factory  func(backend.Kind) backend.Backend
	log      *slog.Logger
	defaults reader.Options
	fonts    FontLoader
	stamper  *reader.Stamper

	state   State
	gen     uint64
	backend backend.Backend
	file    backend.File
	sess    Session

	queue   []navOp
	navBusy bool
}

// New creates a Controller in the Empty state.
func New(opts ...Option) *Controller {
	c := &Controller{
		factory:  backend.New,
		log:      slog.New(slog.DiscardHandler),
		defaults: reader.DefaultOptions(),
		stamper:  reader.NewStamper(nil),
	}
	for _, o := range opts {
		o(c)
	}
	c.sess = Session{Options: c.defaults}
	return c
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Session returns a copy of the current session.
func (c *Controller) Session() Session { return c.sess.clone() }

// File returns the file of the current session, or nil.
func (c *Controller) File() backend.File { return c.file }

// OpenFile starts loading f, replacing whatever was open. The previous
// backend is disposed before the returned Cmd runs.
func (c *Controller) OpenFile(ctx context.Context, f backend.File) Cmd {
	c.gen++
	c.disposeBackend()

	kind := backend.KindOf(f.Name())
	b := c.factory(kind)
	c.backend, c.file = b, f
	c.state = Loading
	c.sess = Session{
		Kind:       kind,
		Name:       f.Name(),
		Options:    c.defaults,
		Generation: c.gen,
	}
	c.log.Info("opening document", "name", f.Name(), "kind", kind, "generation", c.gen)

	gen := c.gen
	return func() Msg {
		res, err := b.Load(ctx, f)
		return LoadedMsg{Generation: gen, Backend: b, Name: f.Name(), Result: res, Err: err}
	}
}

// Reload opens the current file again as a new session.
func (c *Controller) Reload(ctx context.Context) Cmd {
	if c.file == nil || c.state == Disposed {
		return nil
	}
	return c.OpenFile(ctx, c.file)
}

// Handle applies the result of a Cmd. It may return a follow-up Cmd, and an
// error the frontend should show. Errors are always classified.
func (c *Controller) Handle(msg Msg) (Cmd, error) {
	switch msg := msg.(type) {
	case LoadedMsg:
		return c.loaded(msg)
	case NavigatedMsg:
		return c.navigated(msg)
	case MovedMsg:
		if msg.Generation != c.gen || c.state != Ready {
			return nil, nil
		}
		c.reconcile()
		return c.watch(), nil
	case FontMsg:
		return nil, c.fontLoaded(msg)
	}
	return nil, nil
}

func (c *Controller) loaded(msg LoadedMsg) (Cmd, error) {
	if msg.Generation != c.gen || msg.Backend != c.backend {
		c.log.Debug("discarding stale load", "name", msg.Name, "generation", msg.Generation, "current", c.gen)
		msg.Backend.Dispose()
		return nil, nil
	}
	if msg.Err == nil {
		msg.Err = c.checkChapters(msg.Result.Chapters)
	}
	if msg.Err != nil {
		err := reader.Classify(msg.Name, msg.Err)
		c.log.Error("load failed", "name", msg.Name, "err", err)
		c.disposeBackend()
		c.state = Empty
		c.sess = Session{Options: c.defaults, Generation: c.gen}
		return nil, err
	}

	c.sess.Chapters = msg.Result.Chapters
	c.sess.Current = msg.Result.Initial
	if c.sess.Current.IsZero() {
		c.sess.Current = c.backend.CurrentAddress()
	}
	c.state = Ready
	c.log.Info("document ready", "name", msg.Name, "chapters", len(msg.Result.Chapters), "generation", c.gen)
	return c.watch(), nil
}

// checkChapters rejects chapter lists an adapter should never produce.
func (c *Controller) checkChapters(chapters []reader.Chapter) error {
	want := c.sess.Kind.Encoding()
	seen := make(map[reader.Address]bool, len(chapters))
	for i, ch := range chapters {
		if ch.Address.Encoding() != want {
			return reader.NewLoadError(reader.CorruptDocument, c.sess.Name,
				fmt.Errorf("chapter %d: address %v is not a %v address", i, ch.Address, want))
		}
		if seen[ch.Address] {
			return reader.NewLoadError(reader.CorruptDocument, c.sess.Name,
				fmt.Errorf("chapter %d: duplicate address %v", i, ch.Address))
		}
		seen[ch.Address] = true
	}
	return nil
}

// watch returns a Cmd waiting for the backend to move on its own. It yields
// nothing once the backend is disposed.
func (c *Controller) watch() Cmd {
	n, ok := c.backend.(backend.Notifier)
	if !ok {
		return nil
	}
	ch, gen := n.Moved(), c.gen
	return func() Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return MovedMsg{Generation: gen}
	}
}

func (c *Controller) reconcile() {
	if addr := c.backend.CurrentAddress(); !addr.IsZero() {
		c.sess.Current = addr
	}
}

// NavigateTo moves to addr. Navigations run one at a time in the order they
// were issued; the returned Cmd is nil when this one is queued behind another.
func (c *Controller) NavigateTo(ctx context.Context, addr reader.Address) (Cmd, error) {
	if c.state != Ready {
		return nil, reader.InvalidAddress(addr, "no document is ready")
	}
	if want := c.sess.Kind.Encoding(); addr.Encoding() != want {
		return nil, reader.InvalidAddress(addr, fmt.Sprintf("want a %v address", want))
	}
	return c.enqueue(ctx, func(ctx context.Context, b backend.Backend) error {
		return b.NavigateTo(ctx, addr)
	}), nil
}

// NavigateToChapter moves to the chapter at index i.
func (c *Controller) NavigateToChapter(ctx context.Context, i int) (Cmd, error) {
	if i < 0 || i >= len(c.sess.Chapters) {
		return nil, reader.InvalidAddress(reader.Address{}, fmt.Sprintf("no chapter %d", i))
	}
	return c.NavigateTo(ctx, c.sess.Chapters[i].Address)
}

// Turn moves delta pages on backends that paginate, and delta chapters on
// the others.
func (c *Controller) Turn(ctx context.Context, delta int) (Cmd, error) {
	if c.state != Ready {
		return nil, reader.InvalidAddress(reader.Address{}, "no document is ready")
	}
	if _, ok := c.backend.(backend.Paginator); ok {
		return c.enqueue(ctx, func(ctx context.Context, b backend.Backend) error {
			return b.(backend.Paginator).Turn(ctx, delta)
		}), nil
	}
	chapters := c.sess.Chapters
	if len(chapters) == 0 {
		return nil, nil
	}
	// The target depends on where earlier queued navigations left the backend.
	return c.enqueue(ctx, func(ctx context.Context, b backend.Backend) error {
		cur := b.ChapterIndex(b.CurrentAddress())
		i := min(max(cur+delta, 0), len(chapters)-1)
		if i == cur {
			return nil
		}
		return b.NavigateTo(ctx, chapters[i].Address)
	}), nil
}

func (c *Controller) enqueue(ctx context.Context, run func(context.Context, backend.Backend) error) Cmd {
	c.queue = append(c.queue, navOp{ctx: ctx, run: run})
	if c.navBusy {
		return nil
	}
	return c.nextNav()
}

func (c *Controller) nextNav() Cmd {
	if len(c.queue) == 0 {
		c.navBusy = false
		return nil
	}
	op := c.queue[0]
	c.queue = c.queue[1:]
	c.navBusy = true
	b, gen := c.backend, c.gen
	return func() Msg {
		return NavigatedMsg{Generation: gen, Err: op.run(op.ctx, b)}
	}
}

func (c *Controller) navigated(msg NavigatedMsg) (Cmd, error) {
	if msg.Generation != c.gen || c.state != Ready {
		return nil, nil
	}
	c.reconcile()
	next := c.nextNav()
	if msg.Err != nil {
		c.log.Warn("navigation failed", "err", msg.Err)
		return next, reader.Classify(c.sess.Name, msg.Err)
	}
	return next, nil
}

// CurrentChapter returns the index of the chapter holding the current
// position, or -1.
func (c *Controller) CurrentChapter() int {
	if c.state != Ready {
		return -1
	}
	return c.backend.ChapterIndex(c.sess.Current)
}

// AddBookmark bookmarks the backend's current position. An empty title
// defaults to the title of the chapter holding it.
func (c *Controller) AddBookmark(title string) (reader.Bookmark, error) {
	if c.state != Ready {
		return reader.Bookmark{}, reader.InvalidAddress(reader.Address{}, "no document is ready")
	}
	c.reconcile()
	addr := c.sess.Current
	if title == "" {
		if i := c.backend.ChapterIndex(addr); i >= 0 {
			title = c.sess.Chapters[i].Title
		} else {
			title = addr.String()
		}
	}
	bm := reader.Bookmark{Address: addr, Title: title, CreatedAt: c.stamper.Next()}
	c.sess.Bookmarks = append(c.sess.Bookmarks, bm)
	return bm, nil
}

// RemoveBookmark deletes the bookmark created at stamp and reports whether
// one existed.
func (c *Controller) RemoveBookmark(stamp reader.Stamp) bool {
	for i, bm := range c.sess.Bookmarks {
		if bm.CreatedAt == stamp {
			c.sess.Bookmarks = append(c.sess.Bookmarks[:i:i], c.sess.Bookmarks[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateOptions merges p into the display options and returns the result,
// clamped to the allowed ranges.
func (c *Controller) UpdateOptions(p reader.OptionsPatch) reader.Options {
	c.sess.Options = c.sess.Options.Apply(p)
	return c.sess.Options
}

// LoadFont fetches a font family. On success the family is selected; failure
// leaves the session untouched.
func (c *Controller) LoadFont(ctx context.Context, family, url string) Cmd {
	loader, gen := c.fonts, c.gen
	return func() Msg {
		if loader == nil {
			return FontMsg{Generation: gen, Family: family, URL: url, Err: errors.New("no font loader configured")}
		}
		return FontMsg{Generation: gen, Family: family, URL: url, Err: loader.Load(ctx, family, url)}
	}
}

func (c *Controller) fontLoaded(msg FontMsg) error {
	if msg.Err != nil {
		var fe *reader.FontLoadError
		if !errors.As(msg.Err, &fe) {
			msg.Err = &reader.FontLoadError{Family: msg.Family, URL: msg.URL, Err: msg.Err}
		}
		c.log.Warn("font unavailable", "family", msg.Family, "err", msg.Err)
		return msg.Err
	}
	if msg.Generation != c.gen {
		return nil
	}
	c.UpdateOptions(reader.OptionsPatch{FontFamily: reader.String(msg.Family)})
	return nil
}

// View renders the current content for a width x height area.
func (c *Controller) View(width, height int) (string, error) {
	if c.state != Ready {
		return "", nil
	}
	s, ok := c.backend.(backend.Surface)
	if !ok {
		return c.sess.Current.String(), nil
	}
	return s.View(width, height)
}

// Close disposes the backend and returns to Empty. Results of in-flight
// commands are discarded when they arrive.
func (c *Controller) Close() {
	c.gen++
	c.disposeBackend()
	c.file = nil
	c.sess = Session{Options: c.defaults, Generation: c.gen}
	if c.state != Disposed {
		c.state = Empty
	}
}

// Dispose closes the controller for good.
func (c *Controller) Dispose() {
	c.Close()
	c.state = Disposed
}

func (c *Controller) disposeBackend() {
	if c.backend != nil {
		c.backend.Dispose()
		c.backend = nil
	}
	c.queue, c.navBusy = nil, false
}
