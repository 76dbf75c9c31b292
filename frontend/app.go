// Package frontend renders the launcher window and feeds keyboard input to
// the session controller.
package frontend

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/skratchdot/open-golang/open"
	"golang.design/x/clipboard"

	"github.com/rtts/ialauncher/game"
	"github.com/rtts/ialauncher/session"
)

// Options configures the window
type Options struct {
	Fullscreen bool
	Edit       bool
}

// App is the main application struct that implements ebiten.Game
type App struct {
	ctrl   *session.Controller
	opts   Options
	keys   KeyState
	notice *Notification
	titles titleCache

	// Progress and status overlay, rebuilt when its view changes
	ui    *ebitenui.UI
	uiKey string

	width, height int

	clipboardInited bool
	clipboardFailed bool

	// The Playing frame is drawn before the blocking launch runs
	playingDrawn bool
	reportedErr  error
}

// Run opens the launcher window and drives ctrl until the session ends.
func Run(ctrl *session.Controller, opts Options) error {
	ebiten.SetWindowTitle("IA Launcher")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(960, 720)
	ebiten.SetFullscreen(opts.Fullscreen)
	if opts.Fullscreen {
		ebiten.SetCursorMode(ebiten.CursorModeHidden)
	}

	app := newApp(ctrl, opts, &ebitenKeys{})
	if err := ebiten.RunGame(app); err != nil {
		return err
	}
	if err := ctrl.LastError(); err != nil && ctrl.State() == session.StateTerminated && ctrl.Catalog() == nil {
		return err
	}
	return nil
}

func newApp(ctrl *session.Controller, opts Options, keys KeyState) *App {
	return &App{
		ctrl:   ctrl,
		opts:   opts,
		keys:   keys,
		notice: NewNotification(),
	}
}

// Update implements ebiten.Game
func (a *App) Update() error {
	act := MapInput(a.keys, a.ctrl.State(), a.opts.Edit)
	if act.ToggleFullscreen {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if act.CopyURL {
		a.copyURL()
	}
	if act.OpenDir {
		a.openDir()
	}
	for _, ev := range act.Events {
		a.ctrl.Handle(ev)
	}

	if a.ctrl.State() == session.StatePlaying && !a.playingDrawn {
		a.refreshOverlay()
		return nil
	}
	a.ctrl.Update(time.Now())
	if a.ctrl.State() != session.StatePlaying {
		a.playingDrawn = false
	}
	a.refreshOverlay()

	a.reportError()
	if a.ctrl.State() == session.StateTerminated {
		return ebiten.Termination
	}
	return nil
}

// overlayView returns the overlay for the current state, if it has one
func (a *App) overlayView() (overlayView, bool) {
	switch a.ctrl.State() {
	case session.StateLoading:
		return loadingView(a.ctrl.Loaded()), true
	case session.StateDownloading:
		if res := a.ctrl.LastFetch(); res != nil {
			return failedView(res), true
		}
		title := ""
		if e := a.ctrl.Current(); e != nil {
			title = e.Title()
		}
		p, _ := a.ctrl.Download()
		return downloadView(title, p), true
	case session.StatePlaying:
		return startingView(), true
	}
	return overlayView{}, false
}

func (a *App) refreshOverlay() {
	v, ok := a.overlayView()
	if !ok {
		a.ui, a.uiKey = nil, ""
		return
	}
	key := fmt.Sprintf("%dx%d %s", a.width, a.height, v.key())
	if a.ui == nil || key != a.uiKey {
		a.ui = buildOverlay(v, a.width)
		a.uiKey = key
	}
	a.ui.Update()
}

// reportError surfaces a new controller error once
func (a *App) reportError() {
	err := a.ctrl.LastError()
	if err == nil || err == a.reportedErr {
		return
	}
	a.reportedErr = err
	if a.ctrl.State() == session.StateTerminated {
		return
	}
	a.notice.ShowError(err.Error())
	if errors.Is(err, game.ErrEmulatorUnavailable) {
		// Run dialog in goroutine to avoid blocking Ebiten's main thread
		go ShowError("DOSBox not found", "DOSBox could not be started. Install DOSBox or set the emulator command in the configuration.")
	}
}

// copyURL places the current entry's first source location on the clipboard
func (a *App) copyURL() {
	e := a.ctrl.Current()
	if e == nil {
		return
	}
	urls := e.SourceLocations()
	if len(urls) == 0 {
		a.notice.ShowDefault("No download URL")
		return
	}
	if !a.clipboardInited && !a.clipboardFailed {
		if err := clipboard.Init(); err != nil {
			log.Printf("Warning: clipboard not available: %v", err)
			a.clipboardFailed = true
		} else {
			a.clipboardInited = true
		}
	}
	if !a.clipboardInited {
		a.notice.ShowError("Clipboard not available")
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(urls[0]))
	a.notice.ShowDefault("Copied " + urls[0])
}

// openDir shows the current entry's directory in the file manager
func (a *App) openDir() {
	e := a.ctrl.Current()
	if e == nil {
		return
	}
	if err := open.Start(e.Path); err != nil {
		log.Printf("Warning: failed to open %s: %v", e.Path, err)
	}
}

// Draw implements ebiten.Game
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(Background)

	switch a.ctrl.State() {
	case session.StateBrowsing, session.StateDownloading:
		a.drawEntry(screen)
	case session.StatePlaying:
		a.drawEntry(screen)
		a.playingDrawn = true
	}
	if a.ui != nil {
		a.ui.Draw(screen)
	}

	a.notice.Draw(screen)
}

// drawEntry draws the current entry's title screen, or its title and year
// when it has none
func (a *App) drawEntry(screen *ebiten.Image) {
	e := a.ctrl.Current()
	if e == nil {
		return
	}
	if img := a.titles.get(e, a.width, a.height); img != nil {
		b := img.Bounds()
		opts := &ebiten.DrawImageOptions{}
		opts.GeoM.Translate(float64(a.width-b.Dx())/2, float64(a.height-b.Dy())/2)
		screen.DrawImage(img, opts)
		return
	}

	y := float64(a.height)/2 - largeFontSize
	drawText(screen, e.Title(), largeFontSize, y, Text)
	if year, ok := e.Year(); ok && year != "" {
		drawText(screen, year, fontSize, y+largeFontSize+padding, TextSecondary)
	}
	if a.opts.Edit && e.Hidden {
		drawText(screen, "hidden", fontSize, y+largeFontSize+2*padding+fontSize, Danger)
	}
}

// Layout implements ebiten.Game
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	a.width, a.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}
