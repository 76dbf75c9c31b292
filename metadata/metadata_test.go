package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeMetadata writes raw metadata.ini content into a fresh directory
func writeMetadata(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write metadata: %v", err)
	}
	return dir
}

func TestLoad_NotFound(t *testing.T) {
	r, err := Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if r != nil {
		t.Error("Expected nil record on error")
	}
}

func TestLoad_MissingSection(t *testing.T) {
	dir := writeMetadata(t, "[other]\ntitle = Doom\n")
	r, err := Load(dir)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
	if r != nil {
		t.Error("Expected nil record on error")
	}
}

func TestLoad_UnclosedSection(t *testing.T) {
	dir := writeMetadata(t, "[metadata\ntitle = Doom\n")
	if _, err := Load(dir); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
}

func TestLoad_UnclosedMultiline(t *testing.T) {
	dir := writeMetadata(t, "[metadata]\nemulator_start = \"\"\"cd game\nGAME.EXE\n")
	if _, err := Load(dir); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
}

func TestLoad_Fields(t *testing.T) {
	dir := writeMetadata(t, `[metadata]
Title = Commander Keen; Episode 1
year = 1990
url = https://archive.org/download/keen/keen1.zip
	https://archive.org/download/keen/extra.zip
`)
	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Title == nil || *r.Title != "Commander Keen; Episode 1" {
		t.Errorf("Unexpected title: %v", r.Title)
	}
	if r.Year == nil || *r.Year != "1990" {
		t.Errorf("Unexpected year: %v", r.Year)
	}
	want := []string{
		"https://archive.org/download/keen/keen1.zip",
		"https://archive.org/download/keen/extra.zip",
	}
	if !reflect.DeepEqual(r.URLs, want) {
		t.Errorf("Expected URLs %v, got %v", want, r.URLs)
	}
	if r.EmulatorStart != nil {
		t.Errorf("Expected absent emulator_start, got %q", *r.EmulatorStart)
	}
	if r.DOSBoxConf != nil {
		t.Errorf("Expected absent dosbox_conf, got %q", *r.DOSBoxConf)
	}
}

func TestLoad_PythonContinuationLines(t *testing.T) {
	dir := writeMetadata(t, "[metadata]\n"+
		"title = Prince of Persia\n"+
		"emulator_start = cd pop\n"+
		"\tprince.exe megahit\n"+
		"dosbox_conf = \n"+
		"\t[cpu]\n"+
		"\tcycles = max\n")

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.EmulatorStart == nil || *r.EmulatorStart != "cd pop\nprince.exe megahit" {
		t.Errorf("Unexpected emulator_start: %q", deref(r.EmulatorStart))
	}
	if r.DOSBoxConf == nil || *r.DOSBoxConf != "\n[cpu]\ncycles = max" {
		t.Errorf("Unexpected dosbox_conf: %q", deref(r.DOSBoxConf))
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		record Record
	}{
		{
			name:   "empty record",
			record: Record{},
		},
		{
			name: "title only",
			record: Record{
				Title: String("Alpha"),
			},
		},
		{
			name: "present but empty",
			record: Record{
				Title:         String(""),
				EmulatorStart: String(""),
			},
		},
		{
			name: "trailing newline",
			record: Record{
				EmulatorStart: String("GAME.EXE\n"),
			},
		},
		{
			name: "embedded blank lines",
			record: Record{
				Title:         String("Bravo"),
				Year:          String("1993"),
				URLs:          []string{"https://example.com/a.zip", "https://example.com/b.7z"},
				EmulatorStart: String("cd bravo\n\n\nBRAVO.EXE /nosound\n\n"),
				DOSBoxConf:    String("[cpu]\ncycles=max\n\n[autoexec]\n# comment ; with separators\n"),
			},
		},
		{
			name: "leading newline and indentation",
			record: Record{
				EmulatorStart: String("\n   indented\n\tTAB.EXE"),
			},
		},
		{
			name: "special characters",
			record: Record{
				Title:         String("Quest for Glory: So You Want = a Hero?"),
				EmulatorStart: String("echo `ver` ; C:\\"),
			},
		},
		{
			name: "surrounding whitespace",
			record: Record{
				Title: String("  padded  "),
			},
		},
		{
			name: "surrounding quotes",
			record: Record{
				Title:         String(`"Heroes"`),
				Year:          String(`'93'`),
				EmulatorStart: String(`""`),
			},
		},
		{
			name: "quotes with inner quote and padding",
			record: Record{
				Title: String(` say "hi" `),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := Save(dir, &tt.record); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := Load(dir)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(*got, tt.record) {
				t.Errorf("Round trip mismatch:\n got  %s\n want %s", dump(got), dump(&tt.record))
			}
		})
	}
}

func TestSave_OmitsAbsentFields(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, &Record{Title: String("Alpha"), EmulatorStart: String("A.EXE")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := Save(dir, &Record{Title: String("Alpha")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	for _, key := range []string{"emulator_start", "dosbox_conf", "year", "url"} {
		if strings.Contains(string(data), key) {
			t.Errorf("Expected %s to be omitted, file:\n%s", key, data)
		}
	}
}

func TestSave_PreservesUnknownKeys(t *testing.T) {
	dir := writeMetadata(t, "[metadata]\ntitle = Old\nidentifier = doom-1993\n\n[extra]\nnote = keep me\n")

	if err := Save(dir, &Record{Title: String("New")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	for _, want := range []string{"identifier", "doom-1993", "[extra]", "keep me"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %q to survive Save, file:\n%s", want, data)
		}
	}

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if deref(r.Title) != "New" {
		t.Errorf("Expected title New, got %q", deref(r.Title))
	}
}

func TestSave_Unencodable(t *testing.T) {
	dir := writeMetadata(t, "[metadata]\ntitle = Original\n")

	err := Save(dir, &Record{Title: String("bad"), EmulatorStart: String(`echo """`)})
	if !errors.Is(err, ErrUnencodable) {
		t.Fatalf("Expected ErrUnencodable, got %v", err)
	}

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if deref(r.Title) != "Original" {
		t.Errorf("Rejected save must leave file untouched, got title %q", deref(r.Title))
	}
}

func TestLoad_KeepsSurroundingQuotes(t *testing.T) {
	dir := writeMetadata(t, "[metadata]\ntitle = \"Heroes\"\nyear = '1993'\n")
	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if deref(r.Title) != `"Heroes"` {
		t.Errorf("Expected quoted title, got %q", deref(r.Title))
	}
	if deref(r.Year) != `'1993'` {
		t.Errorf("Expected quoted year, got %q", deref(r.Year))
	}
}

func TestSave_RejectsQuotedPadding(t *testing.T) {
	dir := t.TempDir()
	err := Save(dir, &Record{Title: String(`" padded "`)})
	if !errors.Is(err, ErrUnencodable) {
		t.Fatalf("Expected ErrUnencodable, got %v", err)
	}
	if Exists(dir) {
		t.Error("Rejected save must not create a file")
	}
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, &Record{Title: String("Alpha")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != FileName {
		t.Errorf("Expected only %s in %s, got %v", FileName, filepath.Base(dir), entries)
	}
}

func TestClone(t *testing.T) {
	orig := &Record{Title: String("Alpha"), URLs: []string{"u1"}}
	c := orig.Clone()
	*c.Title = "Changed"
	c.URLs[0] = "u2"
	if *orig.Title != "Alpha" || orig.URLs[0] != "u1" {
		t.Error("Clone must not share storage with the original")
	}
	if (*Record)(nil).Clone() != nil {
		t.Error("Clone of nil must be nil")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Error("Expected no metadata in empty dir")
	}
	if err := Save(dir, &Record{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !Exists(dir) {
		t.Error("Expected metadata after Save")
	}
}

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func dump(r *Record) string {
	return "title=" + deref(r.Title) +
		" year=" + deref(r.Year) +
		" urls=" + strings.Join(r.URLs, ",") +
		" start=" + deref(r.EmulatorStart) +
		" conf=" + deref(r.DOSBoxConf)
}
