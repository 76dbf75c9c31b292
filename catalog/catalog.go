// Package catalog holds the ordered, navigable collection of game entries.
package catalog

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rtts/ialauncher/game"
)

// ErrEntryInvalid wraps the reason a directory could not be loaded as an entry
var ErrEntryInvalid = errors.New("invalid catalog entry")

// ErrEmpty is returned when a scan finds no entries
var ErrEmpty = errors.New("catalog is empty")

// ErrUnknownEntry is returned for identifiers not in the catalog
var ErrUnknownEntry = errors.New("unknown catalog entry")

// Catalog is an ordered set of entries keyed by identifier with a cursor
// marking the current one. It is not safe for concurrent use.
type Catalog struct {
	entries map[string]*game.Entry
	order   []*game.Entry
	cursor  int
	rand    *rand.Rand
}

// New creates an empty catalog. A nil r uses a time-seeded source.
func New(r *rand.Rand) *Catalog {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Catalog{
		entries: make(map[string]*game.Entry),
		rand:    r,
	}
}

// sortKey is the case-insensitive display title
func sortKey(e *game.Entry) string {
	return strings.ToLower(strings.TrimSpace(e.Title()))
}

// less orders by title, then by identifier so the order is total
func less(a, b *game.Entry) bool {
	ka, kb := sortKey(a), sortKey(b)
	if ka != kb {
		return ka < kb
	}
	return a.Identifier < b.Identifier
}

// leading returns the lower-case first character of the entry's title
func leading(e *game.Entry) rune {
	r, _ := utf8.DecodeRuneInString(sortKey(e))
	return r
}

// Add inserts e in order. An entry with the same identifier is replaced.
func (c *Catalog) Add(e *game.Entry) {
	current := c.Current()
	if old, ok := c.entries[e.Identifier]; ok {
		c.removeFromOrder(old)
		if current == old {
			current = e
		}
	}
	c.entries[e.Identifier] = e

	i := sort.Search(len(c.order), func(i int) bool { return less(e, c.order[i]) })
	c.order = append(c.order, nil)
	copy(c.order[i+1:], c.order[i:])
	c.order[i] = e

	c.follow(current)
}

func (c *Catalog) removeFromOrder(e *game.Entry) {
	for i, o := range c.order {
		if o == e {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// follow moves the cursor back onto e after the order changed
func (c *Catalog) follow(e *game.Entry) {
	if e == nil {
		c.cursor = 0
		return
	}
	for i, o := range c.order {
		if o == e {
			c.cursor = i
			return
		}
	}
	c.clampCursor()
}

func (c *Catalog) clampCursor() {
	if c.cursor >= len(c.order) {
		c.cursor = 0
	}
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.order)
}

// Get returns the entry with the given identifier
func (c *Catalog) Get(id string) (*game.Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Entries returns the entries in display order
func (c *Catalog) Entries() []*game.Entry {
	return append([]*game.Entry(nil), c.order...)
}

// SortAndMaybeRandomize re-establishes the order and places the cursor on
// the first entry, or on a random one when startRandom is set.
func (c *Catalog) SortAndMaybeRandomize(startRandom bool) {
	sort.SliceStable(c.order, func(i, j int) bool { return less(c.order[i], c.order[j]) })
	c.cursor = 0
	if startRandom && len(c.order) > 0 {
		c.cursor = c.rand.Intn(len(c.order))
	}
}

// Current returns the entry under the cursor, or nil for an empty catalog
func (c *Catalog) Current() *game.Entry {
	if len(c.order) == 0 {
		return nil
	}
	return c.order[c.cursor]
}

// Cursor returns the index of the current entry
func (c *Catalog) Cursor() int {
	return c.cursor
}

// Next moves to the following entry, wrapping at the end
func (c *Catalog) Next() *game.Entry {
	return c.step(1)
}

// Previous moves to the preceding entry, wrapping at the start
func (c *Catalog) Previous() *game.Entry {
	return c.step(-1)
}

func (c *Catalog) step(delta int) *game.Entry {
	n := len(c.order)
	if n == 0 {
		return nil
	}
	c.cursor = ((c.cursor+delta)%n + n) % n
	return c.Current()
}

// NextLetter moves past every entry sharing the current entry's first
// letter. Running off the end wraps to the first entry.
func (c *Catalog) NextLetter() *game.Entry {
	n := len(c.order)
	if n == 0 {
		return nil
	}
	letter := leading(c.order[c.cursor])
	i := c.cursor
	for i < n && leading(c.order[i]) == letter {
		i++
	}
	if i >= n {
		i = 0
	}
	c.cursor = i
	return c.Current()
}

// PreviousLetter takes the first letter of the entry before the cursor and
// moves to the first entry of that letter's block. From the middle of a
// block this lands on the start of the same block.
func (c *Catalog) PreviousLetter() *game.Entry {
	n := len(c.order)
	if n == 0 {
		return nil
	}
	letter := leading(c.order[(c.cursor-1+n)%n])
	c.cursor = c.firstWith(letter, c.cursor)
	return c.Current()
}

// JumpToLetter moves to the first entry starting with r. It reports false
// and leaves the cursor alone when there is none.
func (c *Catalog) JumpToLetter(r rune) bool {
	r = unicode.ToLower(r)
	i := c.firstWith(r, -1)
	if i < 0 {
		return false
	}
	c.cursor = i
	return true
}

func (c *Catalog) firstWith(letter rune, fallback int) int {
	for i, e := range c.order {
		if leading(e) == letter {
			return i
		}
	}
	return fallback
}

// RandomEntry moves to a uniformly chosen entry
func (c *Catalog) RandomEntry() *game.Entry {
	if len(c.order) == 0 {
		return nil
	}
	c.cursor = c.rand.Intn(len(c.order))
	return c.Current()
}

// Select moves the cursor to the entry with the given identifier
func (c *Catalog) Select(id string) bool {
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	c.follow(e)
	return true
}

// Rename renames the entry's directory and re-keys it. The cursor stays on
// the renamed entry.
func (c *Catalog) Rename(id, newName string) error {
	e, ok := c.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	if other, ok := c.entries[strings.TrimSpace(newName)]; ok && other != e {
		return fmt.Errorf("%w: %s", game.ErrNameCollision, newName)
	}
	current := c.Current()
	if err := e.Rename(newName); err != nil {
		return err
	}
	delete(c.entries, id)
	c.entries[e.Identifier] = e
	sort.SliceStable(c.order, func(i, j int) bool { return less(c.order[i], c.order[j]) })
	c.follow(current)
	return nil
}
