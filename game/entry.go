// Package game models a single catalog title: its metadata, its on-disk
// readiness, asset fetching and emulator launching.
package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rtts/ialauncher/metadata"
)

// On-disk names inside an entry directory
const (
	RunDirName     = "dosbox_drive_c"
	BootScriptName = "dosbox.bat"
	ConfigName     = "dosbox.conf"
	TitleImageName = "title.png"
)

// titleScreenCandidates lists title screen files in lookup order
var titleScreenCandidates = []string{TitleImageName, "title_screen.png", "00_coverscreenshot.jpg"}

// hiddenPrefix marks a hidden entry directory
const hiddenPrefix = "."

// ErrNameCollision is returned when a rename target already exists
var ErrNameCollision = errors.New("an entry with that name already exists")

// ErrInvalidName is returned for names that cannot be used as a directory
var ErrInvalidName = errors.New("invalid entry name")

// Entry is one title in the catalog. Identifier, Path and Hidden are only
// changed by Rename and ToggleHidden, which run on the control thread.
type Entry struct {
	Identifier string
	Path       string
	Hidden     bool

	mu     sync.Mutex
	record *metadata.Record
}

// NewEntry loads the entry stored in dir.
func NewEntry(dir string) (*Entry, error) {
	rec, err := metadata.Load(dir)
	if err != nil {
		return nil, err
	}
	return newEntry(dir, rec), nil
}

func newEntry(dir string, rec *metadata.Record) *Entry {
	base := filepath.Base(dir)
	return &Entry{
		Identifier: strings.TrimLeft(base, hiddenPrefix),
		Path:       dir,
		Hidden:     strings.HasPrefix(base, hiddenPrefix),
		record:     rec,
	}
}

// Record returns a copy of the entry's metadata.
func (e *Entry) Record() *metadata.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.Clone()
}

// Title returns the display title, falling back to the identifier.
func (e *Entry) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.Title != nil && strings.TrimSpace(*e.record.Title) != "" {
		return *e.record.Title
	}
	return e.Identifier
}

// Year returns the release year if known.
func (e *Entry) Year() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deref(e.record.Year)
}

// SourceLocations returns the URIs assets are fetched from, in order.
func (e *Entry) SourceLocations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.record.URLs...)
}

// LaunchCommand returns the bare executable name or boot script body.
func (e *Entry) LaunchCommand() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deref(e.record.EmulatorStart)
}

// ConfigOverride returns the emulator config text written before each launch.
func (e *Entry) ConfigOverride() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deref(e.record.DOSBoxConf)
}

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// RunDir returns the directory the emulator is started in.
func (e *Entry) RunDir() string {
	return filepath.Join(e.Path, RunDirName)
}

// IsReady reports whether assets are staged: the run directory exists and
// is not empty.
func (e *Entry) IsReady() bool {
	return dirReady(e.RunDir())
}

func dirReady(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// Reset removes the run directory so the entry is fetched again on the
// next launch. Downloaded files and metadata are kept. Resetting an entry
// that has no run directory does nothing.
func (e *Entry) Reset() error {
	dir := e.RunDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to reset %s: %w", e.Identifier, err)
	}
	return nil
}

// TitleScreen returns the path of the title screen image, if there is one.
func (e *Entry) TitleScreen() (string, bool) {
	for _, name := range titleScreenCandidates {
		p := filepath.Join(e.Path, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// SetLaunchCommand stores a new launch command. The metadata file is
// written before the in-memory record changes.
func (e *Entry) SetLaunchCommand(cmd string) error {
	return e.update(func(r *metadata.Record) {
		r.EmulatorStart = metadata.String(cmd)
	})
}

// update applies fn to a copy of the record, persists it, then swaps it in
func (e *Entry) update(fn func(r *metadata.Record)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.record.Clone()
	fn(next)
	if err := metadata.Save(e.Path, next); err != nil {
		return err
	}
	e.record = next
	return nil
}

// Rename moves the entry directory to newName, which also becomes the
// entry's title. It fails with ErrNameCollision if another entry already
// uses that name, hidden or not.
func (e *Entry) Rename(newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName != filepath.Base(newName) || strings.HasPrefix(newName, hiddenPrefix) ||
		strings.ContainsAny(newName, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}
	if newName != e.Identifier {
		if err := e.move(newName, e.Hidden); err != nil {
			return err
		}
	}
	return e.update(func(r *metadata.Record) {
		r.Title = metadata.String(newName)
	})
}

// ToggleHidden hides a visible entry or reveals a hidden one by adding or
// removing the leading dot of its directory name.
func (e *Entry) ToggleHidden() error {
	return e.move(e.Identifier, !e.Hidden)
}

// move renames the entry directory to identifier with the given visibility
func (e *Entry) move(identifier string, hidden bool) error {
	parent := filepath.Dir(e.Path)
	name := identifier
	if hidden {
		name = hiddenPrefix + identifier
	}
	target := filepath.Join(parent, name)

	self, err := os.Lstat(e.Path)
	if err != nil {
		return fmt.Errorf("failed to rename %s: %w", e.Identifier, err)
	}
	for _, candidate := range []string{identifier, hiddenPrefix + identifier} {
		info, err := os.Lstat(filepath.Join(parent, candidate))
		if err == nil && !os.SameFile(info, self) {
			return fmt.Errorf("%w: %s", ErrNameCollision, candidate)
		}
	}

	if err := os.Rename(e.Path, target); err != nil {
		return fmt.Errorf("failed to rename %s: %w", e.Identifier, err)
	}
	e.Path = target
	e.Identifier = identifier
	e.Hidden = hidden
	return nil
}
