package unpack

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractRAR_FileNotFound(t *testing.T) {
	x := &extractor{dest: t.TempDir()}
	if err := x.rar("/nonexistent/path/test.rar"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestExtractRAR_InvalidFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.rar")
	if err := os.WriteFile(path, []byte("not a rar file"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	x := &extractor{dest: t.TempDir()}
	if err := x.rar(path); err == nil {
		t.Error("Expected error for invalid RAR file")
	}
}

// TestInstall_RARByExtension checks that a truncated RAR is still treated as
// an archive and reported
func TestInstall_RARByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.rar")
	if err := os.WriteFile(path, []byte{0x52, 0x61}, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	kind, err := Detect(path)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if kind != KindRAR {
		t.Fatalf("Expected rar, got %s", kind)
	}
	if _, err := Install(path, t.TempDir(), Options{}); err == nil {
		t.Error("Expected error for truncated RAR file")
	}
}
