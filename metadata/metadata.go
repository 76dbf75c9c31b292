// Package metadata reads and writes the flat key/value record kept in every
// catalog entry directory.
package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/rtts/ialauncher/storage"
)

// FileName is the name of the metadata file inside an entry directory.
const FileName = "metadata.ini"

const (
	sectionName = "metadata"

	keyTitle         = "title"
	keyYear          = "year"
	keyURL           = "url"
	keyEmulatorStart = "emulator_start"
	keyDOSBoxConf    = "dosbox_conf"
)

// Multi-line values are wrapped in this delimiter on disk, so no value may
// contain it.
const multilineDelimiter = `"""`

var (
	ErrNotFound    = errors.New("metadata not found")
	ErrMalformed   = errors.New("metadata malformed")
	ErrUnencodable = errors.New("metadata value cannot be encoded")
)

// Record is the metadata of one catalog entry. A nil field is absent from
// the file, which is different from a present but empty value.
type Record struct {
	Title         *string
	Year          *string
	URLs          []string
	EmulatorStart *string
	DOSBoxConf    *string
}

// String returns a pointer to s, for filling optional Record fields.
func String(s string) *string {
	return &s
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		Title:         clonePtr(r.Title),
		Year:          clonePtr(r.Year),
		EmulatorStart: clonePtr(r.EmulatorStart),
		DOSBoxConf:    clonePtr(r.DOSBoxConf),
	}
	if r.URLs != nil {
		c.URLs = append([]string(nil), r.URLs...)
	}
	return c
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Path returns the metadata file path for an entry directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Exists reports whether dir contains a metadata file.
func Exists(dir string) bool {
	info, err := os.Stat(Path(dir))
	return err == nil && info.Mode().IsRegular()
}

func loadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		Insensitive:                true,
		IgnoreInlineComment:        true,
		IgnoreContinuation:         true,
		AllowPythonMultilineValues: true,
		PreserveSurroundedQuote:    true,
	}
}

// Load reads the record stored in dir. It never returns a partially
// populated record: any failure yields a nil record.
func Load(dir string) (*Record, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	f, err := ini.LoadSources(loadOptions(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if !f.HasSection(sectionName) {
		return nil, fmt.Errorf("%w: %s: no [%s] section", ErrMalformed, path, sectionName)
	}
	sec := f.Section(sectionName)

	quoted := tripleQuotedKeys(data)
	value := func(key string) *string {
		if !sec.HasKey(key) {
			return nil
		}
		v := sec.Key(key).Value()
		switch {
		case quoted[key]:
		case strings.Contains(v, "\n"):
			v = dedent(v)
		case paddedInQuotes(v):
			v = v[1 : len(v)-1]
		}
		return &v
	}

	r := &Record{
		Title:         value(keyTitle),
		Year:          value(keyYear),
		EmulatorStart: value(keyEmulatorStart),
		DOSBoxConf:    value(keyDOSBoxConf),
	}
	if urls := value(keyURL); urls != nil {
		r.URLs = strings.Fields(*urls)
	}
	return r, nil
}

// Save writes r to dir, replacing the previous file atomically. Keys and
// sections the record does not model are carried over from the existing file.
func Save(dir string, r *Record) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrUnencodable)
	}

	fields := []struct {
		key string
		val *string
	}{
		{keyTitle, r.Title},
		{keyYear, r.Year},
		{keyURL, joinURLs(r.URLs)},
		{keyEmulatorStart, r.EmulatorStart},
		{keyDOSBoxConf, r.DOSBoxConf},
	}
	for _, fd := range fields {
		if fd.val == nil {
			continue
		}
		v := *fd.val
		if strings.Contains(v, multilineDelimiter) {
			return fmt.Errorf("%w: %s contains %s", ErrUnencodable, fd.key, multilineDelimiter)
		}
		if !strings.ContainsAny(v, "\n`") && paddedInQuotes(v) {
			return fmt.Errorf("%w: %s is quoted with surrounding whitespace inside", ErrUnencodable, fd.key)
		}
	}

	f, err := existingOrEmpty(Path(dir))
	if err != nil {
		return err
	}
	sec := f.Section(sectionName)
	for _, fd := range fields {
		if fd.val == nil {
			sec.DeleteKey(fd.key)
			continue
		}
		sec.Key(fd.key).SetValue(*fd.val)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := storage.AtomicWriteFile(Path(dir), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// existingOrEmpty loads the current file so unknown keys survive a Save. A
// missing or unreadable file starts from scratch.
func existingOrEmpty(path string) (*ini.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ini.Empty(loadOptions()), nil
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	f, err := ini.LoadSources(loadOptions(), data)
	if err != nil {
		return ini.Empty(loadOptions()), nil
	}
	return f, nil
}

func joinURLs(urls []string) *string {
	if len(urls) == 0 {
		return nil
	}
	s := strings.Join(urls, "\n")
	return &s
}

// tripleQuotedKeys returns the keys of the [metadata] section whose value is
// written in """ form. Other multi-line values came from indented
// continuation lines and need their indentation removed.
func tripleQuotedKeys(data []byte) map[string]bool {
	keys := make(map[string]bool)
	inSection := false
	inQuote := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if inQuote {
			if strings.Contains(trimmed, multilineDelimiter) {
				inQuote = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inSection = strings.EqualFold(strings.TrimSpace(trimmed[1:len(trimmed)-1]), sectionName)
			continue
		}
		i := strings.IndexAny(trimmed, "=:")
		if i < 0 {
			continue
		}
		val := strings.TrimSpace(trimmed[i+1:])
		if !strings.HasPrefix(val, multilineDelimiter) {
			continue
		}
		if !strings.Contains(val[len(multilineDelimiter):], multilineDelimiter) {
			inQuote = true
		}
		if inSection {
			keys[strings.ToLower(strings.TrimSpace(trimmed[:i]))] = true
		}
	}
	return keys
}

// paddedInQuotes reports whether v is a single-line value in double quotes
// with whitespace just inside them. The encoder writes values with
// surrounding whitespace in that form; other quoted values are kept verbatim.
func paddedInQuotes(v string) bool {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return false
	}
	inner := v[1 : len(v)-1]
	return strings.TrimSpace(inner) != inner
}

// dedent strips the indentation of continuation lines and trailing blank
// lines, matching how Python's configparser reads them.
func dedent(v string) string {
	lines := strings.Split(v, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
