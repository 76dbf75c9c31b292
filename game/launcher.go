package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// bootScriptHeader starts every autorun boot script
const bootScriptHeader = "@echo off\ncls\n"

// ErrBootScript is returned when the boot script cannot be written. Nothing
// is started in that case.
var ErrBootScript = errors.New("failed to write boot script")

// ErrNotReady is returned when launching an entry without staged assets
var ErrNotReady = errors.New("entry assets are not staged")

// Mode selects how the emulator is launched.
type Mode int

const (
	// ModeAutorun runs the launch command and exits the emulator afterwards.
	ModeAutorun Mode = iota
	// ModeEdit opens a prompt so the boot script can be edited; the result
	// is saved as the new launch command.
	ModeEdit
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeAutorun:
		return "autorun"
	case ModeEdit:
		return "edit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// LauncherOptions holds the launch settings fixed at startup.
type LauncherOptions struct {
	Fullscreen bool
	// CaptureDir is where the emulator stores screenshots. After an edit
	// session the first one becomes the entry's title image.
	CaptureDir string
}

// Launcher builds emulator invocations and runs them.
type Launcher struct {
	resolver *Resolver
	runner   Runner
	opts     LauncherOptions
}

// NewLauncher creates a launcher. A nil runner uses ExecRunner.
func NewLauncher(resolver *Resolver, runner Runner, opts LauncherOptions) *Launcher {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Launcher{resolver: resolver, runner: runner, opts: opts}
}

// Available reports whether an emulator can be resolved.
func (l *Launcher) Available(ctx context.Context) error {
	_, err := l.resolver.Resolve(ctx)
	return err
}

// Launch starts the emulator for e. In edit mode it returns only after the
// emulator exited and the edited boot script has been saved.
func (l *Launcher) Launch(ctx context.Context, e *Entry, mode Mode) error {
	cmd, err := l.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if !e.IsReady() {
		return fmt.Errorf("%w: %s", ErrNotReady, e.Identifier)
	}

	runDir := e.RunDir()
	var extra []string

	body, _ := e.LaunchCommand()
	target := "."
	switch mode {
	case ModeEdit:
		if err := writeBootScript(runDir, body); err != nil {
			return err
		}
	default:
		if exe, ok := bareExecutable(runDir, body); ok {
			target = exe
		} else {
			if err := writeBootScript(runDir, bootScriptHeader+body); err != nil {
				return err
			}
			target = BootScriptName
		}
		extra = append(extra, "-exit")
	}

	confArgs, err := writeConfig(runDir, e)
	if err != nil {
		return err
	}

	args := append(append([]string(nil), cmd.Args...), target)
	if l.opts.Fullscreen {
		args = append(args, "-fullscreen")
	}
	args = append(args, confArgs...)
	args = append(args, extra...)

	inv := Invocation{Dir: runDir, Name: cmd.Path, Args: args}
	slog.Debug("launching emulator", "entry", e.Identifier, "mode", mode, "command", inv.String())

	if mode == ModeAutorun && !cmd.WaitForExit {
		return l.runner.Start(ctx, inv)
	}
	runErr := l.runner.Run(ctx, inv)
	if mode != ModeEdit {
		return runErr
	}

	if err := harvest(e); err != nil {
		return err
	}
	if ok, err := promoteCapture(l.opts.CaptureDir, e.Path); err != nil {
		slog.Warn("title screen capture failed", "entry", e.Identifier, "error", err)
	} else if ok {
		slog.Info("stored title screen", "entry", e.Identifier)
	}
	return runErr
}

// writeConfig rewrites the config override, or removes a stale one, and
// returns the emulator flags that load it
func writeConfig(runDir string, e *Entry) ([]string, error) {
	path := filepath.Join(runDir, ConfigName)
	conf, ok := e.ConfigOverride()
	if !ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale %s: %w", ConfigName, err)
		}
		return nil, nil
	}
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ConfigName, err)
	}
	return []string{"-userconf", "-conf", ConfigName}, nil
}

// writeBootScript writes the boot script under its lower-case name,
// removing copies that differ only in case so the emulator finds one file
func writeBootScript(runDir, content string) error {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBootScript, err)
	}
	for _, de := range entries {
		if de.Name() != BootScriptName && strings.EqualFold(de.Name(), BootScriptName) {
			if err := os.Remove(filepath.Join(runDir, de.Name())); err != nil {
				return fmt.Errorf("%w: %v", ErrBootScript, err)
			}
		}
	}
	if err := os.WriteFile(filepath.Join(runDir, BootScriptName), []byte(content), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrBootScript, err)
	}
	return nil
}

// harvest reads the boot script back after an edit session and stores a
// non-empty result as the launch command
func harvest(e *Entry) error {
	data, err := os.ReadFile(filepath.Join(e.RunDir(), BootScriptName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read edited boot script: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := e.SetLaunchCommand(string(data)); err != nil {
		return fmt.Errorf("failed to save launch command: %w", err)
	}
	slog.Info("saved edited launch command", "entry", e.Identifier)
	return nil
}

// bareExecutable reports whether body names a single file inside runDir,
// matching each path component case-insensitively. It returns the path
// relative to runDir with the on-disk spelling.
func bareExecutable(runDir, body string) (string, bool) {
	name := strings.TrimSpace(body)
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return "", false
	}

	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	dir := runDir
	var rel []string
	for i, part := range parts {
		if part == "." || part == ".." {
			return "", false
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", false
		}
		found := ""
		for _, de := range entries {
			if strings.EqualFold(de.Name(), part) {
				found = de.Name()
				if de.Name() == part {
					break
				}
			}
		}
		if found == "" {
			return "", false
		}
		dir = filepath.Join(dir, found)
		rel = append(rel, found)
		if i == len(parts)-1 {
			info, err := os.Stat(dir)
			if err != nil || !info.Mode().IsRegular() {
				return "", false
			}
		}
	}
	if len(rel) == 0 {
		return "", false
	}
	return filepath.Join(rel...), true
}
