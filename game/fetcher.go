package game

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rtts/ialauncher/metadata"
	"github.com/rtts/ialauncher/unpack"
)

// ErrBadSource is returned for source URIs that do not name a file
var ErrBadSource = errors.New("source location does not name a file")

// ErrHTTPStatus is returned when a download answers with a non-200 status
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// partialSuffix marks a download in progress
const partialSuffix = ".tmp"

// defaultClient bounds connection setup but not the transfer itself, since
// archives can be large
var defaultClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	},
}

// FetchProgress reports the transfer state of the current URI
type FetchProgress struct {
	URI      string
	Index    int   // 0-based position in the source list
	Total    int   // number of source locations
	Received int64 // bytes received so far
	Size     int64 // -1 when the server did not send a length
}

// FetchError is the failure of a single source location
type FetchError struct {
	URI string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchResult is delivered once every source location has been attempted
type FetchResult struct {
	Staged    int // files written into the run directory
	Ready     bool
	Errors    []*FetchError
	Cancelled bool
}

// Fetcher starts background asset downloads.
type Fetcher struct {
	client *http.Client
	opts   unpack.Options
}

// NewFetcher creates a fetcher. A nil client uses a default one.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = defaultClient
	}
	return &Fetcher{
		client: client,
		opts:   unpack.Options{Exclude: []string{ConfigName}},
	}
}

// Start begins fetching the assets of e in a new goroutine. The task is
// bound to e: paths are captured now, so later changes to which entry is
// current cannot redirect its writes.
func (f *Fetcher) Start(e *Entry) *FetchTask {
	t := &FetchTask{
		entry:    e,
		dir:      e.Path,
		runDir:   e.RunDir(),
		uris:     e.SourceLocations(),
		client:   f.client,
		opts:     f.opts,
		cancel:   make(chan struct{}),
		progress: make(chan FetchProgress, 10),
		done:     make(chan FetchResult, 1),
	}
	go t.run()
	return t
}

// FetchTask is one running download for a single entry
type FetchTask struct {
	entry  *Entry
	dir    string
	runDir string
	uris   []string
	client *http.Client
	opts   unpack.Options

	// Channels
	cancel   chan struct{}
	progress chan FetchProgress
	done     chan FetchResult

	mu        sync.Mutex
	cancelled bool
	completed bool
	result    FetchResult
}

// Entry returns the entry this task writes to
func (t *FetchTask) Entry() *Entry {
	return t.entry
}

// Progress returns the progress channel
func (t *FetchTask) Progress() <-chan FetchProgress {
	return t.progress
}

// Done returns the done channel. It receives the result once and is then
// closed.
func (t *FetchTask) Done() <-chan FetchResult {
	return t.done
}

// Completed reports whether every source location has been attempted.
// All file writes are finished when it returns true.
func (t *FetchTask) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Result returns the final result once the task has completed
func (t *FetchTask) Result() (FetchResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.completed
}

// Cancel abandons the task. The file being transferred is finished;
// remaining source locations are skipped.
func (t *FetchTask) Cancel() {
	t.mu.Lock()
	if !t.cancelled {
		t.cancelled = true
		close(t.cancel)
	}
	t.mu.Unlock()
}

func (t *FetchTask) isCancelled() bool {
	select {
	case <-t.cancel:
		return true
	default:
		return false
	}
}

func (t *FetchTask) run() {
	defer close(t.done)
	defer close(t.progress)

	var result FetchResult
	for i, uri := range t.uris {
		if t.isCancelled() {
			result.Cancelled = true
			break
		}
		n, err := t.fetchOne(i, uri)
		result.Staged += n
		if err != nil {
			slog.Warn("asset fetch failed", "entry", t.entry.Identifier, "uri", uri, "error", err)
			result.Errors = append(result.Errors, &FetchError{URI: uri, Err: err})
		}
	}
	result.Ready = dirReady(t.runDir)

	t.mu.Lock()
	t.result = result
	t.completed = true
	t.mu.Unlock()

	t.done <- result
}

// fetchOne stages a single source location and installs it into the run
// directory. A file already present in the entry directory is not
// downloaded again.
func (t *FetchTask) fetchOne(index int, uri string) (int, error) {
	name, err := StagingName(uri)
	if err != nil {
		return 0, err
	}
	staged := filepath.Join(t.dir, name)

	if _, err := os.Stat(staged); err == nil {
		slog.Debug("asset already staged", "entry", t.entry.Identifier, "file", name)
	} else {
		slog.Info("downloading asset", "entry", t.entry.Identifier, "uri", uri)
		if err := t.download(index, uri, staged); err != nil {
			return 0, err
		}
		slog.Info("downloaded asset", "entry", t.entry.Identifier, "file", name)
	}

	n, err := unpack.Install(staged, t.runDir, t.opts)
	if err != nil {
		// Drop the unusable file so a retry downloads it again
		os.Remove(staged)
		return n, err
	}
	return n, nil
}

// download streams uri into dst via a temporary file
func (t *FetchTask) download(index int, uri, dst string) error {
	resp, err := t.client.Get(uri)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}

	tempPath := dst + partialSuffix
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	pw := &progressWriter{task: t, p: FetchProgress{
		URI:   uri,
		Index: index,
		Total: len(t.uris),
		Size:  resp.ContentLength,
	}}
	_, err = io.Copy(out, io.TeeReader(resp.Body, pw))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write download: %w", err)
	}

	t.sendProgress(pw.p)

	if err := os.Rename(tempPath, dst); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename download: %w", err)
	}
	return nil
}

func (t *FetchTask) sendProgress(p FetchProgress) {
	select {
	case t.progress <- p:
	default:
		// Progress channel full, skip this update
	}
}

// progressWriter counts bytes and reports them on the task's channel
type progressWriter struct {
	task *FetchTask
	p    FetchProgress
	last time.Time
}

func (w *progressWriter) Write(b []byte) (int, error) {
	w.p.Received += int64(len(b))
	if now := time.Now(); now.Sub(w.last) >= 100*time.Millisecond || w.p.Received == w.p.Size {
		w.last = now
		w.task.sendProgress(w.p)
	}
	return len(b), nil
}

// StagingName derives the file name a source location is stored under: the
// unescaped last path segment.
func StagingName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSource, err)
	}
	name := path.Base(u.Path)
	switch {
	case name == "." || name == "/" || name == "..",
		strings.ContainsAny(name, `/\`),
		strings.HasSuffix(name, partialSuffix),
		strings.EqualFold(name, metadata.FileName),
		strings.EqualFold(name, RunDirName):
		return "", fmt.Errorf("%w: %s", ErrBadSource, uri)
	}
	return name, nil
}
