package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
)

// ErrEmulatorUnavailable is returned when no emulator could be found
var ErrEmulatorUnavailable = errors.New("DOSBox could not be found on this system")

// probeTimeout bounds a single "--version" probe
const probeTimeout = 10 * time.Second

// Command is a resolved emulator invocation prefix.
type Command struct {
	Path string
	Args []string

	// WaitForExit is false where the emulator hands each launch to an
	// already running instance, so waiting would block until that
	// instance quits.
	WaitForExit bool
}

// String returns the command line for display
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// ProbeFunc checks that a candidate command actually runs.
type ProbeFunc func(ctx context.Context, c Command) error

// DiscoveryStrategy produces a working emulator command or an error.
type DiscoveryStrategy interface {
	Discover(ctx context.Context, probe ProbeFunc) (Command, error)
}

// CommandStrategy tries a shell-style command line, e.g. "open -a DOSBox --args".
type CommandStrategy struct {
	Line        string
	WaitForExit bool
}

// Discover splits the command line and probes it
func (s CommandStrategy) Discover(ctx context.Context, probe ProbeFunc) (Command, error) {
	argv, err := shlex.Split(s.Line)
	if err != nil {
		return Command{}, fmt.Errorf("invalid emulator command %q: %w", s.Line, err)
	}
	if len(argv) == 0 {
		return Command{}, fmt.Errorf("empty emulator command")
	}
	c := Command{Path: argv[0], Args: argv[1:], WaitForExit: s.WaitForExit}
	if err := probe(ctx, c); err != nil {
		return Command{}, err
	}
	return c, nil
}

// GlobStrategy looks for an executable matching Pattern below the directory
// named by the environment variable Env.
type GlobStrategy struct {
	Env         string
	Pattern     string
	WaitForExit bool
}

// Discover expands the pattern and probes the first match
func (s GlobStrategy) Discover(ctx context.Context, probe ProbeFunc) (Command, error) {
	root := os.Getenv(s.Env)
	if root == "" {
		return Command{}, fmt.Errorf("%s is not set", s.Env)
	}
	matches, err := filepath.Glob(filepath.Join(root, s.Pattern))
	if err != nil {
		return Command{}, err
	}
	if len(matches) == 0 {
		return Command{}, fmt.Errorf("no match for %s", filepath.Join(root, s.Pattern))
	}
	sort.Strings(matches)
	c := Command{Path: matches[0], WaitForExit: s.WaitForExit}
	if err := probe(ctx, c); err != nil {
		return Command{}, err
	}
	return c, nil
}

// DefaultStrategies returns the built-in search order. A non-empty
// configured command line is tried first.
func DefaultStrategies(configured string) []DiscoveryStrategy {
	wait := runtime.GOOS != "darwin"

	var s []DiscoveryStrategy
	if strings.TrimSpace(configured) != "" {
		s = append(s, CommandStrategy{Line: configured, WaitForExit: wait})
	}
	return append(s,
		CommandStrategy{Line: "dosbox", WaitForExit: wait},
		CommandStrategy{Line: "open -a DOSBox --args", WaitForExit: wait},
		CommandStrategy{Line: "/Applications/dosbox.app/Contents/MacOS/DOSBox", WaitForExit: wait},
		GlobStrategy{Env: "ProgramFiles(x86)", Pattern: `dosbox*\dosbox.exe`, WaitForExit: wait},
	)
}

// ProbeVersion runs the candidate with --version and requires success.
func ProbeVersion(ctx context.Context, c Command) error {
	if _, err := exec.LookPath(c.Path); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	args := append(append([]string(nil), c.Args...), "--version")
	return exec.CommandContext(ctx, c.Path, args...).Run()
}

// Resolver finds the emulator by trying strategies in order. The first
// success is remembered.
type Resolver struct {
	strategies []DiscoveryStrategy
	probe      ProbeFunc

	mu       sync.Mutex
	resolved *Command
}

// NewResolver creates a resolver. A nil probe uses ProbeVersion.
func NewResolver(strategies []DiscoveryStrategy, probe ProbeFunc) *Resolver {
	if probe == nil {
		probe = ProbeVersion
	}
	return &Resolver{strategies: strategies, probe: probe}
}

// Resolve returns the emulator command or ErrEmulatorUnavailable.
func (r *Resolver) Resolve(ctx context.Context) (Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return *r.resolved, nil
	}
	for _, s := range r.strategies {
		c, err := s.Discover(ctx, r.probe)
		if err != nil {
			slog.Debug("emulator candidate rejected", "strategy", fmt.Sprintf("%+v", s), "error", err)
			continue
		}
		slog.Debug("emulator resolved", "command", c.String())
		r.resolved = &c
		return c, nil
	}
	return Command{}, ErrEmulatorUnavailable
}
