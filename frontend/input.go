package frontend

import (
	"unicode"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/rtts/ialauncher/game"
	"github.com/rtts/ialauncher/session"
)

// KeyState reports the keyboard state of one frame
type KeyState interface {
	JustPressed(k ebiten.Key) bool
	Pressed(k ebiten.Key) bool
	Chars() []rune
}

// ebitenKeys reads the keyboard through ebiten
type ebitenKeys struct {
	buf []rune
}

func (ebitenKeys) JustPressed(k ebiten.Key) bool {
	return inpututil.IsKeyJustPressed(k)
}

func (ebitenKeys) Pressed(k ebiten.Key) bool {
	return ebiten.IsKeyPressed(k)
}

func (e *ebitenKeys) Chars() []rune {
	e.buf = ebiten.AppendInputChars(e.buf[:0])
	return e.buf
}

// Action is the result of mapping one frame of input
type Action struct {
	Events           []session.Event
	CopyURL          bool
	OpenDir          bool
	ToggleFullscreen bool
}

// navigation maps keys to browsing events
var navigation = []struct {
	key   ebiten.Key
	event session.Event
}{
	{ebiten.KeyArrowRight, session.EventNext{}},
	{ebiten.KeyArrowLeft, session.EventPrevious{}},
	{ebiten.KeyArrowDown, session.EventNextLetter{}},
	{ebiten.KeyArrowUp, session.EventPreviousLetter{}},
	{ebiten.KeySpace, session.EventRandom{}},
}

// MapInput turns the keyboard state into session events for the given state.
func MapInput(ks KeyState, state session.State, edit bool) Action {
	var act Action
	if ks.JustPressed(ebiten.KeyF11) {
		act.ToggleFullscreen = true
	}
	ctrl := ks.Pressed(ebiten.KeyControl) || ks.Pressed(ebiten.KeyMeta)
	if ctrl && (ks.JustPressed(ebiten.KeyQ) || ks.JustPressed(ebiten.KeyW)) {
		act.Events = append(act.Events, session.EventQuit{})
		return act
	}

	switch state {
	case session.StateBrowsing:
		if ks.JustPressed(ebiten.KeyEscape) {
			act.Events = append(act.Events, session.EventQuit{})
			return act
		}
		if ctrl {
			act.CopyURL = ks.JustPressed(ebiten.KeyC)
			act.OpenDir = ks.JustPressed(ebiten.KeyO)
			return act
		}

		for _, n := range navigation {
			if ks.JustPressed(n.key) {
				act.Events = append(act.Events, n.event)
			}
		}
		if edit && ks.JustPressed(ebiten.KeyDelete) {
			act.Events = append(act.Events, session.EventToggleHidden{})
		}
		for _, r := range ks.Chars() {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				act.Events = append(act.Events, session.EventLetter{Rune: r})
			}
		}
		if ks.JustPressed(ebiten.KeyEnter) || ks.JustPressed(ebiten.KeyNumpadEnter) {
			mode := game.ModeAutorun
			if ks.Pressed(ebiten.KeyAlt) {
				mode = game.ModeEdit
			}
			if ks.Pressed(ebiten.KeyShift) {
				act.Events = append(act.Events, session.EventReset{})
			}
			act.Events = append(act.Events, session.EventLaunch{Mode: mode})
		}
	case session.StateDownloading:
		if ks.JustPressed(ebiten.KeyEscape) {
			act.Events = append(act.Events, session.EventCancel{})
		}
	case session.StateLoading:
		if ks.JustPressed(ebiten.KeyEscape) {
			act.Events = append(act.Events, session.EventQuit{})
		}
	}
	return act
}
