// Package session sequences catalog loading, browsing, asset download and
// play for a single user.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/rtts/ialauncher/catalog"
	"github.com/rtts/ialauncher/game"
)

// ErrEmptyCatalog is reported when loading finished without a single entry.
var ErrEmptyCatalog = catalog.ErrEmpty

// loadBudget bounds the scanning work done in a single Update call.
const loadBudget = 8 * time.Millisecond

// Scanner loads the catalog step by step.
type Scanner interface {
	Step() (bool, error)
	Progress() (int, int)
	Catalog() *catalog.Catalog
}

// Fetcher starts a background download bound to one entry.
type Fetcher interface {
	Start(e *game.Entry) *game.FetchTask
}

// Launcher runs the emulator for one entry.
type Launcher interface {
	Launch(ctx context.Context, e *game.Entry, mode game.Mode) error
}

// Options is the immutable session configuration.
type Options struct {
	Slideshow   time.Duration // 0 disables the slideshow
	StartRandom bool
	Edit        bool // allow hiding entries
}

// Controller is the session state machine. It is driven from a single
// goroutine through Handle and Update.
type Controller struct {
	opts     Options
	scanner  Scanner
	fetcher  Fetcher
	launcher Launcher
	ctx      context.Context

	state   State
	catalog *catalog.Catalog

	task      *game.FetchTask
	taskMode  game.Mode
	progress  game.FetchProgress
	lastFetch *game.FetchResult

	playing  *game.Entry
	playMode game.Mode

	lastErr    error
	nextTick   time.Time
	resetTimer bool
}

// New creates a controller in the Loading state.
func New(opts Options, scanner Scanner, fetcher Fetcher, launcher Launcher) *Controller {
	return &Controller{
		opts:       opts,
		scanner:    scanner,
		fetcher:    fetcher,
		launcher:   launcher,
		ctx:        context.Background(),
		state:      StateLoading,
		resetTimer: true,
	}
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Catalog returns the loaded catalog, or nil while loading
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// Current returns the entry under the cursor
func (c *Controller) Current() *game.Entry {
	if c.catalog == nil {
		return nil
	}
	return c.catalog.Current()
}

// LastError returns the most recent launch, reset or loading error
func (c *Controller) LastError() error {
	return c.lastErr
}

// LastFetch returns the result of the last completed download for the
// entry being fetched, or nil while it is still running.
func (c *Controller) LastFetch() *game.FetchResult {
	return c.lastFetch
}

// Download returns the latest progress of the active download
func (c *Controller) Download() (game.FetchProgress, bool) {
	return c.progress, c.state == StateDownloading
}

// Loaded returns the number of scanned and total catalog directories
func (c *Controller) Loaded() (int, int) {
	return c.scanner.Progress()
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	slog.Debug("session state transition", "from", c.state, "to", s)
	c.state = s
	if s == StateBrowsing {
		c.resetTimer = true
	}
}

// Handle applies a single input event.
func (c *Controller) Handle(ev Event) {
	if _, ok := ev.(EventQuit); ok {
		c.abandonFetch()
		c.setState(StateTerminated)
		return
	}

	switch c.state {
	case StateBrowsing:
		c.handleBrowsing(ev)
	case StateDownloading:
		if _, ok := ev.(EventCancel); ok {
			c.abandonFetch()
			c.setState(StateBrowsing)
		}
	}
}

func (c *Controller) handleBrowsing(ev Event) {
	switch ev := ev.(type) {
	case EventNext:
		c.catalog.Next()
	case EventPrevious:
		c.catalog.Previous()
	case EventNextLetter:
		c.catalog.NextLetter()
	case EventPreviousLetter:
		c.catalog.PreviousLetter()
	case EventLetter:
		c.catalog.JumpToLetter(ev.Rune)
	case EventRandom:
		c.catalog.RandomEntry()
	case EventTick:
		c.catalog.RandomEntry()
		return
	case EventReset:
		if e := c.catalog.Current(); e != nil {
			if err := e.Reset(); err != nil {
				c.lastErr = err
			}
		}
	case EventToggleHidden:
		if !c.opts.Edit {
			return
		}
		if e := c.catalog.Current(); e != nil {
			if err := e.ToggleHidden(); err != nil {
				c.lastErr = err
			}
		}
	case EventLaunch:
		c.launch(ev.Mode)
	default:
		return
	}
	c.resetTimer = true
}

func (c *Controller) launch(mode game.Mode) {
	e := c.catalog.Current()
	if e == nil {
		return
	}
	c.lastErr = nil
	if e.IsReady() {
		c.playing, c.playMode = e, mode
		c.setState(StatePlaying)
		return
	}

	c.lastFetch = nil
	c.progress = game.FetchProgress{Total: len(e.SourceLocations())}
	c.task = c.fetcher.Start(e)
	c.taskMode = mode
	slog.Info("download started", "entry", e.Identifier)
	c.setState(StateDownloading)
}

// abandonFetch drops the active task. It keeps writing into its own entry
// but its result is never observed.
func (c *Controller) abandonFetch() {
	if c.task == nil {
		return
	}
	c.task.Cancel()
	c.task = nil
	c.lastFetch = nil
}

// Update advances the state machine. It is called once per frame.
func (c *Controller) Update(now time.Time) {
	switch c.state {
	case StateLoading:
		c.updateLoading()
	case StateBrowsing:
		c.updateBrowsing(now)
	case StateDownloading:
		c.updateDownloading()
	case StatePlaying:
		c.updatePlaying()
	}
}

func (c *Controller) updateLoading() {
	start := time.Now()
	for time.Since(start) < loadBudget {
		done, err := c.scanner.Step()
		if err != nil {
			c.lastErr = err
			c.setState(StateTerminated)
			return
		}
		if done {
			c.finishLoading()
			return
		}
	}
}

func (c *Controller) finishLoading() {
	cat := c.scanner.Catalog()
	if cat.Len() == 0 {
		c.lastErr = ErrEmptyCatalog
		c.setState(StateTerminated)
		return
	}
	cat.SortAndMaybeRandomize(c.opts.StartRandom)
	c.catalog = cat
	c.setState(StateBrowsing)
}

func (c *Controller) updateBrowsing(now time.Time) {
	if c.opts.Slideshow <= 0 {
		return
	}
	if c.resetTimer {
		c.nextTick = now.Add(c.opts.Slideshow)
		c.resetTimer = false
		return
	}
	if !now.Before(c.nextTick) {
		c.Handle(EventTick{})
		c.nextTick = now.Add(c.opts.Slideshow)
	}
}

func (c *Controller) updateDownloading() {
	if c.task == nil {
		return
	}
	c.drainProgress()

	select {
	case res, ok := <-c.task.Done():
		if !ok {
			return
		}
		e := c.task.Entry()
		c.task = nil
		c.lastFetch = &res
		if e.IsReady() {
			slog.Info("download finished", "entry", e.Identifier, "staged", res.Staged)
			c.playing, c.playMode = e, c.taskMode
			c.setState(StatePlaying)
			return
		}
		slog.Warn("download left entry not ready", "entry", e.Identifier, "errors", len(res.Errors))
	default:
	}
}

func (c *Controller) drainProgress() {
	for {
		select {
		case p, ok := <-c.task.Progress():
			if !ok {
				return
			}
			c.progress = p
		default:
			return
		}
	}
}

func (c *Controller) updatePlaying() {
	e, mode := c.playing, c.playMode
	c.playing = nil
	if e != nil {
		if err := c.launcher.Launch(c.ctx, e, mode); err != nil {
			slog.Warn("launch failed", "entry", e.Identifier, "mode", mode, "error", err)
			c.lastErr = err
		}
	}
	if c.state == StatePlaying {
		c.setState(StateBrowsing)
	}
}
