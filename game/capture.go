package game

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// promoteCapture moves the first screenshot in captureDir to the entry's
// title image and empties captureDir. It does nothing when there are no
// screenshots.
func promoteCapture(captureDir, entryDir string) (bool, error) {
	if captureDir == "" {
		return false, nil
	}
	entries, err := os.ReadDir(captureDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	var shots []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			shots = append(shots, e.Name())
		}
	}
	if len(shots) == 0 {
		return false, nil
	}
	sort.Strings(shots)

	if err := moveFile(filepath.Join(captureDir, shots[0]), filepath.Join(entryDir, TitleImageName)); err != nil {
		return false, fmt.Errorf("failed to store title screen: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(captureDir, e.Name())); err != nil {
			return true, fmt.Errorf("failed to clear capture directory: %w", err)
		}
	}
	return true, nil
}

// moveFile renames src to dst, copying when they are on different devices
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}
