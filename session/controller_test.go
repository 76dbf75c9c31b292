package session

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rtts/ialauncher/catalog"
	"github.com/rtts/ialauncher/game"
	"github.com/rtts/ialauncher/metadata"
)

type launchCall struct {
	id   string
	mode game.Mode
}

// fakeLauncher records launches instead of running an emulator
type fakeLauncher struct {
	calls []launchCall
	err   error
}

func (f *fakeLauncher) Launch(_ context.Context, e *game.Entry, mode game.Mode) error {
	f.calls = append(f.calls, launchCall{id: e.Identifier, mode: mode})
	return f.err
}

// createEntryDir writes an entry directory with the given record
func createEntryDir(t *testing.T, root, id string, rec *metadata.Record) {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create entry dir: %v", err)
	}
	if err := metadata.Save(dir, rec); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}
}

// makeReady stages a file into an entry's run directory
func makeReady(t *testing.T, root, id string) {
	t.Helper()
	runDir := filepath.Join(root, id, game.RunDirName)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("Failed to create run dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "GAME.EXE"), []byte("MZ"), 0644); err != nil {
		t.Fatalf("Failed to stage file: %v", err)
	}
}

func zipBytes(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		t.Fatalf("Failed to create file in zip: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to zip: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// newLoadedController creates a controller over root and runs it past
// Loading
func newLoadedController(t *testing.T, root string, opts Options, fetcher Fetcher, launcher Launcher) *Controller {
	t.Helper()
	scanner := catalog.NewScanner(root, catalog.Filter{ShowHidden: opts.Edit}, rand.New(rand.NewSource(1)))
	c := New(opts, scanner, fetcher, launcher)
	runUntil(t, c, func() bool { return c.State() != StateLoading })
	return c
}

// runUntil calls Update until cond holds
func runUntil(t *testing.T, c *Controller, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out in state %s", c.State())
		}
		c.Update(time.Now())
		time.Sleep(time.Millisecond)
	}
}

func TestController_LoadingToBrowsing(t *testing.T) {
	root := t.TempDir()
	createEntryDir(t, root, "bravo", &metadata.Record{Title: metadata.String("Bravo")})
	createEntryDir(t, root, "alpha", &metadata.Record{Title: metadata.String("Alpha")})

	c := newLoadedController(t, root, Options{}, game.NewFetcher(nil), &fakeLauncher{})

	if c.State() != StateBrowsing {
		t.Fatalf("Expected Browsing, got %s", c.State())
	}
	if got := c.Current().Title(); got != "Alpha" {
		t.Errorf("Expected cursor on Alpha, got %q", got)
	}
	if scanned, total := c.Loaded(); scanned != 2 || total != 2 {
		t.Errorf("Expected 2/2 scanned, got %d/%d", scanned, total)
	}
}

func TestController_EmptyCatalog(t *testing.T) {
	c := newLoadedController(t, t.TempDir(), Options{}, game.NewFetcher(nil), &fakeLauncher{})

	if c.State() != StateTerminated {
		t.Fatalf("Expected Terminated, got %s", c.State())
	}
	if !errors.Is(c.LastError(), ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog, got %v", c.LastError())
	}
}

func TestController_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	c := newLoadedController(t, root, Options{}, game.NewFetcher(nil), &fakeLauncher{})

	if c.State() != StateTerminated {
		t.Fatalf("Expected Terminated, got %s", c.State())
	}
	if c.LastError() == nil {
		t.Error("Expected a loading error")
	}
}

func TestController_LaunchReadyEntry(t *testing.T) {
	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{Title: metadata.String("Alpha")})
	makeReady(t, root, "alpha")
	launcher := &fakeLauncher{}
	c := newLoadedController(t, root, Options{}, game.NewFetcher(nil), launcher)

	c.Handle(EventLaunch{Mode: game.ModeEdit})
	if c.State() != StatePlaying {
		t.Fatalf("Expected Playing, got %s", c.State())
	}
	c.Update(time.Now())

	if c.State() != StateBrowsing {
		t.Errorf("Expected Browsing after the emulator returned, got %s", c.State())
	}
	if len(launcher.calls) != 1 || launcher.calls[0] != (launchCall{"alpha", game.ModeEdit}) {
		t.Errorf("Unexpected launches %+v", launcher.calls)
	}
}

func TestController_LaunchErrorReturnsToBrowsing(t *testing.T) {
	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{Title: metadata.String("Alpha")})
	makeReady(t, root, "alpha")
	launcher := &fakeLauncher{err: game.ErrEmulatorUnavailable}
	c := newLoadedController(t, root, Options{}, game.NewFetcher(nil), launcher)

	c.Handle(EventLaunch{Mode: game.ModeAutorun})
	c.Update(time.Now())

	if c.State() != StateBrowsing {
		t.Errorf("Expected Browsing, got %s", c.State())
	}
	if !errors.Is(c.LastError(), game.ErrEmulatorUnavailable) {
		t.Errorf("Expected ErrEmulatorUnavailable, got %v", c.LastError())
	}
}

func TestController_DownloadThenPlay(t *testing.T) {
	archive := zipBytes(t, "GAME.EXE", "MZ")
	mux := http.NewServeMux()
	mux.HandleFunc("/missing.zip", http.NotFound)
	mux.HandleFunc("/game.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{
		Title: metadata.String("Alpha"),
		URLs:  []string{srv.URL + "/missing.zip", srv.URL + "/game.zip"},
	})
	launcher := &fakeLauncher{}
	c := newLoadedController(t, root, Options{}, game.NewFetcher(srv.Client()), launcher)

	c.Handle(EventLaunch{Mode: game.ModeAutorun})
	if c.State() != StateDownloading {
		t.Fatalf("Expected Downloading, got %s", c.State())
	}
	runUntil(t, c, func() bool { return len(launcher.calls) > 0 })

	if c.State() != StateBrowsing {
		t.Errorf("Expected Browsing, got %s", c.State())
	}
	if !c.Current().IsReady() {
		t.Error("Expected entry ready after download")
	}
	res := c.LastFetch()
	if res == nil || len(res.Errors) != 1 || res.Errors[0].URI != srv.URL+"/missing.zip" {
		t.Errorf("Expected one error for the missing URI, got %+v", res)
	}
}

func TestController_FailedDownloadStaysUntilCancel(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{
		Title: metadata.String("Alpha"),
		URLs:  []string{srv.URL + "/a.zip", srv.URL + "/b.zip"},
	})
	launcher := &fakeLauncher{}
	c := newLoadedController(t, root, Options{}, game.NewFetcher(srv.Client()), launcher)

	c.Handle(EventLaunch{Mode: game.ModeAutorun})
	runUntil(t, c, func() bool { return c.LastFetch() != nil })

	if c.State() != StateDownloading {
		t.Fatalf("Expected to stay in Downloading, got %s", c.State())
	}
	if n := len(c.LastFetch().Errors); n != 2 {
		t.Errorf("Expected 2 fetch errors, got %d", n)
	}

	c.Handle(EventLaunch{Mode: game.ModeAutorun})
	c.Update(time.Now())
	if got := hits.Load(); got != 2 {
		t.Errorf("Launch while Downloading must not start another fetch, got %d requests", got)
	}

	c.Handle(EventCancel{})
	if c.State() != StateBrowsing {
		t.Errorf("Expected Browsing after cancel, got %s", c.State())
	}
	if len(launcher.calls) != 0 {
		t.Errorf("Expected no launch, got %+v", launcher.calls)
	}
}

func TestController_AbandonedFetchIgnored(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	archive := zipBytes(t, "A.EXE", "A")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.Write(archive)
	}))
	defer srv.Close()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{
		Title: metadata.String("Alpha"),
		URLs:  []string{srv.URL + "/a.zip"},
	})
	createEntryDir(t, root, "bravo", &metadata.Record{Title: metadata.String("Bravo")})
	makeReady(t, root, "bravo")
	launcher := &fakeLauncher{}
	c := newLoadedController(t, root, Options{}, game.NewFetcher(srv.Client()), launcher)

	c.Handle(EventLaunch{Mode: game.ModeAutorun})
	task := c.task
	<-started
	c.Handle(EventCancel{})
	c.Handle(EventNext{})
	if got := c.Current().Identifier; got != "bravo" {
		t.Fatalf("Expected cursor on bravo, got %q", got)
	}

	close(release)
	select {
	case <-task.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for abandoned task")
	}
	c.Update(time.Now())

	if alpha, _ := c.Catalog().Get("alpha"); !alpha.IsReady() {
		t.Error("Abandoned task must still finish its own entry")
	}

	if c.State() != StateBrowsing {
		t.Errorf("Abandoned task must not change state, got %s", c.State())
	}
	if len(launcher.calls) != 0 {
		t.Errorf("Abandoned task must not launch, got %+v", launcher.calls)
	}
	if c.LastFetch() != nil {
		t.Errorf("Abandoned result must not be observed, got %+v", c.LastFetch())
	}
	entries, err := os.ReadDir(filepath.Join(root, "bravo", game.RunDirName))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "GAME.EXE" {
		t.Errorf("Bravo run dir changed: %v", entries)
	}
}

func TestController_SlideshowOnlyInBrowsing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{
		Title: metadata.String("Alpha"),
		URLs:  []string{srv.URL + "/a.zip"},
	})
	createEntryDir(t, root, "bravo", &metadata.Record{Title: metadata.String("Bravo")})
	c := newLoadedController(t, root, Options{Slideshow: time.Second}, game.NewFetcher(srv.Client()), &fakeLauncher{})

	t0 := time.Now()
	c.Update(t0)
	if want := t0.Add(time.Second); !c.nextTick.Equal(want) {
		t.Fatalf("Expected timer armed for %v, got %v", want, c.nextTick)
	}
	c.Update(t0.Add(500 * time.Millisecond))
	if !c.nextTick.Equal(t0.Add(time.Second)) {
		t.Error("Timer must not fire early")
	}
	c.Update(t0.Add(time.Second))
	if want := t0.Add(2 * time.Second); !c.nextTick.Equal(want) {
		t.Errorf("Expected tick to rearm timer for %v, got %v", want, c.nextTick)
	}

	c.Catalog().Select("alpha")
	c.Handle(EventLaunch{Mode: game.ModeAutorun})
	runUntil(t, c, func() bool { return c.LastFetch() != nil })
	if c.State() != StateDownloading {
		t.Fatalf("Expected Downloading, got %s", c.State())
	}

	armed := c.nextTick
	c.Update(t0.Add(10 * time.Second))
	if !c.nextTick.Equal(armed) || c.Current().Identifier != "alpha" {
		t.Error("Slideshow must not fire while Downloading")
	}
	c.Handle(EventTick{})
	if c.Current().Identifier != "alpha" {
		t.Error("Tick events must be ignored while Downloading")
	}

	c.Handle(EventQuit{})
	if c.State() != StateTerminated {
		t.Errorf("Expected Terminated after quit, got %s", c.State())
	}
}

func TestController_NavigationRestartsSlideshow(t *testing.T) {
	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{Title: metadata.String("Alpha")})
	createEntryDir(t, root, "bravo", &metadata.Record{Title: metadata.String("Bravo")})
	c := newLoadedController(t, root, Options{Slideshow: time.Second}, game.NewFetcher(nil), &fakeLauncher{})

	t0 := time.Now()
	c.Update(t0)
	c.Handle(EventNext{})
	c.Update(t0.Add(900 * time.Millisecond))
	if want := t0.Add(1900 * time.Millisecond); !c.nextTick.Equal(want) {
		t.Errorf("Expected timer rearmed for %v, got %v", want, c.nextTick)
	}
	if c.Current().Identifier != "bravo" {
		t.Errorf("Expected cursor on bravo, got %q", c.Current().Identifier)
	}
}

func TestController_Navigation(t *testing.T) {
	root := t.TempDir()
	for _, title := range []string{"Alpha", "Apple", "Bravo", "Charlie"} {
		createEntryDir(t, root, title, &metadata.Record{Title: metadata.String(title)})
	}
	c := newLoadedController(t, root, Options{}, game.NewFetcher(nil), &fakeLauncher{})

	tests := []struct {
		ev   Event
		want string
	}{
		{EventNextLetter{}, "Bravo"},
		{EventNext{}, "Charlie"},
		{EventNext{}, "Alpha"},
		{EventPrevious{}, "Charlie"},
		{EventPreviousLetter{}, "Bravo"},
		{EventLetter{Rune: 'a'}, "Alpha"},
		{EventLetter{Rune: 'z'}, "Alpha"},
	}
	for i, tt := range tests {
		c.Handle(tt.ev)
		if got := c.Current().Title(); got != tt.want {
			t.Fatalf("step %d (%T): expected %q, got %q", i, tt.ev, tt.want, got)
		}
	}
}

func TestController_ResetClearsReadiness(t *testing.T) {
	root := t.TempDir()
	createEntryDir(t, root, "alpha", &metadata.Record{Title: metadata.String("Alpha")})
	makeReady(t, root, "alpha")
	c := newLoadedController(t, root, Options{}, game.NewFetcher(nil), &fakeLauncher{})

	c.Handle(EventReset{})

	if c.State() != StateBrowsing {
		t.Errorf("Expected Browsing, got %s", c.State())
	}
	if c.Current().IsReady() {
		t.Error("Expected entry not ready after reset")
	}
}

func TestController_ToggleHiddenRequiresEdit(t *testing.T) {
	tests := []struct {
		name   string
		edit   bool
		hidden bool
	}{
		{"browse session", false, false},
		{"edit session", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			createEntryDir(t, root, "alpha", &metadata.Record{Title: metadata.String("Alpha")})
			c := newLoadedController(t, root, Options{Edit: tt.edit}, game.NewFetcher(nil), &fakeLauncher{})

			c.Handle(EventToggleHidden{})

			if got := c.Current().Hidden; got != tt.hidden {
				t.Errorf("Expected hidden=%v, got %v", tt.hidden, got)
			}
			_, err := os.Stat(filepath.Join(root, ".alpha"))
			if exists := err == nil; exists != tt.hidden {
				t.Errorf("Expected .alpha exists=%v", tt.hidden)
			}
		})
	}
}
