package catalog

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rtts/ialauncher/game"
	"github.com/rtts/ialauncher/metadata"
)

// Filter restricts which entries a scan keeps.
type Filter struct {
	// ShowHidden keeps entries whose directory starts with a dot
	ShowHidden bool
	// Letters keeps only entries whose title starts with one of these
	// characters. Empty keeps everything.
	Letters string
}

func (f Filter) allows(e *game.Entry) bool {
	if e.Hidden && !f.ShowHidden {
		return false
	}
	if f.Letters == "" {
		return true
	}
	return strings.ContainsRune(strings.ToLower(f.Letters), leading(e))
}

// Scanner loads a catalog one directory per Step, so a caller can render
// progress between steps.
type Scanner struct {
	root   string
	filter Filter

	listed  bool
	dirs    []string
	pos     int
	catalog *Catalog
	errors  []error
}

// NewScanner prepares a scan of root. A nil r uses a time-seeded source for
// the resulting catalog.
func NewScanner(root string, filter Filter, r *rand.Rand) *Scanner {
	return &Scanner{
		root:    root,
		filter:  filter,
		catalog: New(r),
	}
}

// Step performs one unit of work and reports whether the scan is finished.
// The first call lists the root directory; an unreadable root is returned
// as an error and ends the scan. Invalid entries are collected, not returned.
func (s *Scanner) Step() (bool, error) {
	if !s.listed {
		dirs, err := listCandidates(s.root)
		if err != nil {
			return true, fmt.Errorf("failed to read catalog %s: %w", s.root, err)
		}
		s.dirs = dirs
		s.listed = true
		return len(s.dirs) == 0, nil
	}
	if s.pos >= len(s.dirs) {
		return true, nil
	}

	dir := s.dirs[s.pos]
	s.pos++
	s.load(dir)
	return s.pos >= len(s.dirs), nil
}

func (s *Scanner) load(dir string) {
	if !metadata.Exists(dir) {
		slog.Debug("skipping directory without metadata", "path", dir)
		return
	}
	e, err := game.NewEntry(dir)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrEntryInvalid, filepath.Base(dir), err)
		slog.Warn("skipping catalog entry", "path", dir, "error", err)
		s.errors = append(s.errors, err)
		return
	}
	if !s.filter.allows(e) {
		return
	}
	s.catalog.Add(e)
}

// Progress returns how many directories have been processed out of how many
func (s *Scanner) Progress() (int, int) {
	return s.pos, len(s.dirs)
}

// Catalog returns the catalog built so far
func (s *Scanner) Catalog() *Catalog {
	return s.catalog
}

// Errors returns the entries that were skipped because they failed to load
func (s *Scanner) Errors() []error {
	return s.errors
}

// listCandidates returns the subdirectories of root in name order
func listCandidates(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, de := range entries {
		path := filepath.Join(root, de.Name())
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, path)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Scan loads every entry below root. Entries that fail to load are skipped
// and returned as errors; err is only set when root itself is unreadable.
func Scan(root string, filter Filter, r *rand.Rand) (*Catalog, []error, error) {
	s := NewScanner(root, filter, r)
	for {
		done, err := s.Step()
		if err != nil {
			return nil, nil, err
		}
		if done {
			break
		}
	}
	return s.Catalog(), s.Errors(), nil
}
