package session

import "github.com/rtts/ialauncher/game"

// Event is an input to the session controller
type Event interface {
	event()
}

// EventNext moves to the next entry
type EventNext struct{}

// EventPrevious moves to the previous entry
type EventPrevious struct{}

// EventNextLetter moves to the first entry of the next letter block
type EventNextLetter struct{}

// EventPreviousLetter moves to the start of the previous letter block
type EventPreviousLetter struct{}

// EventLetter jumps to the first entry starting with Rune
type EventLetter struct {
	Rune rune
}

// EventRandom moves to a random entry
type EventRandom struct{}

// EventLaunch plays the current entry, fetching it first when needed
type EventLaunch struct {
	Mode game.Mode
}

// EventReset deletes the current entry's staged assets
type EventReset struct{}

// EventToggleHidden hides or reveals the current entry. Only honored in
// edit sessions.
type EventToggleHidden struct{}

// EventCancel abandons a download and returns to browsing
type EventCancel struct{}

// EventQuit ends the session from any state
type EventQuit struct{}

// EventTick is the slideshow timer firing
type EventTick struct{}

func (EventNext) event()           {}
func (EventPrevious) event()       {}
func (EventNextLetter) event()     {}
func (EventPreviousLetter) event() {}
func (EventLetter) event()         {}
func (EventRandom) event()         {}
func (EventLaunch) event()         {}
func (EventReset) event()          {}
func (EventToggleHidden) event()   {}
func (EventCancel) event()         {}
func (EventQuit) event()           {}
func (EventTick) event()           {}
