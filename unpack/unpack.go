// Package unpack stages downloaded files into a run directory. Archives
// (ZIP, 7z, RAR, gzip, tar) are detected by magic bytes and extracted in
// full; anything else is copied as-is.
package unpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
	magicTar    = []byte("ustar")
)

// tar stores its magic at this offset of the first header block
const tarMagicOffset = 257

// MaxFileSize caps a single extracted or copied file (2GB).
const MaxFileSize = 2 << 30

// ErrUnsupportedFormat is returned when an archive cannot be read
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// ErrFileTooLarge is returned when a file exceeds MaxFileSize
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// ErrUnsafePath is returned for archive members that would land outside the
// destination directory
var ErrUnsafePath = errors.New("archive member escapes destination")

// Kind is the detected type of a staged file.
type Kind int

const (
	KindPlain Kind = iota
	KindZIP
	Kind7z
	KindRAR
	KindGzip
	KindTar
)

// String returns the display name of the kind
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindZIP:
		return "zip"
	case Kind7z:
		return "7z"
	case KindRAR:
		return "rar"
	case KindGzip:
		return "gzip"
	case KindTar:
		return "tar"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsArchive reports whether files of this kind are extracted rather than copied
func (k Kind) IsArchive() bool {
	return k != KindPlain
}

// Options tunes how files are staged.
type Options struct {
	// Exclude lists file names that are dropped when they appear at the
	// root of an archive. Matching is case-insensitive.
	Exclude []string
}

func (o Options) excluded(name string) bool {
	if strings.Contains(name, "/") {
		return false
	}
	for _, ex := range o.Exclude {
		if strings.EqualFold(name, ex) {
			return true
		}
	}
	return false
}

// Detect reads the header of the file at path and classifies it.
func Detect(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindPlain, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, tarMagicOffset+len(magicTar))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return KindPlain, fmt.Errorf("failed to read file header: %w", err)
	}
	return detectFormat(header[:n], path), nil
}

// detectFormat determines the file format based on magic bytes and extension.
func detectFormat(header []byte, path string) Kind {
	if len(header) >= 4 {
		if bytes.HasPrefix(header, magicZIP) || bytes.HasPrefix(header, magicZIPEnd) {
			return KindZIP
		}
		if bytes.HasPrefix(header, magicRAR) {
			return KindRAR
		}
	}
	if len(header) >= 6 && bytes.HasPrefix(header, magic7z) {
		return Kind7z
	}
	if len(header) >= 2 && bytes.HasPrefix(header, magicGzip) {
		return KindGzip
	}
	if isTarHeader(header) {
		return KindTar
	}

	// Fall back to extension for archives with a damaged header, so the
	// failure is reported instead of the file being staged verbatim
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return KindZIP
	case ".7z":
		return Kind7z
	case ".rar":
		return KindRAR
	case ".gz", ".tgz":
		return KindGzip
	case ".tar":
		return KindTar
	}
	return KindPlain
}

func isTarHeader(header []byte) bool {
	end := tarMagicOffset + len(magicTar)
	return len(header) >= end && bytes.Equal(header[tarMagicOffset:end], magicTar)
}

// Install stages the file at src into dest: archives are extracted in full,
// anything else is copied under its own name. dest is created if needed.
// It returns the number of files written.
//
// Members are extracted into a scratch directory next to dest and only moved
// into place once the whole file has been read, so a failure leaves dest as
// it was.
func Install(src, dest string, opts Options) (int, error) {
	kind, err := Detect(src)
	if err != nil {
		return 0, err
	}
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", parent, err)
	}
	scratch, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+"-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	x := &extractor{dest: scratch, opts: opts}
	switch kind {
	case KindZIP:
		err = x.zip(src)
	case Kind7z:
		err = x.sevenZip(src)
	case KindRAR:
		err = x.rar(src)
	case KindGzip:
		err = x.gzip(src)
	case KindTar:
		err = x.tarFile(src)
	default:
		err = x.copyPlain(src)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to install %s (%s): %w", filepath.Base(src), kind, err)
	}
	if err := merge(scratch, dest); err != nil {
		return 0, fmt.Errorf("failed to install %s: %w", filepath.Base(src), err)
	}
	return x.written, nil
}

// merge moves the contents of src into dest, replacing files that already
// exist there. When dest does not exist src is renamed in one step.
func merge(src, dest string) error {
	if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
		return os.Rename(src, dest)
	}
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil || rel == "." {
			return err
		}
		target := filepath.Join(dest, rel)
		if info, err := os.Lstat(target); err == nil && info.IsDir() != d.IsDir() {
			if err := os.RemoveAll(target); err != nil {
				return err
			}
		}
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return os.Rename(p, target)
	})
}

// extractor writes archive members below dest
type extractor struct {
	dest    string
	opts    Options
	written int
}

// target maps an archive member name to a path inside dest, rejecting
// absolute names and parent references.
func (x *extractor) target(name string) (string, string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	clean = strings.TrimPrefix(clean, "./")
	if clean == "." || clean == "" {
		return "", "", nil
	}
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || filepath.VolumeName(clean) != "" {
		return "", "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return clean, filepath.Join(x.dest, filepath.FromSlash(clean)), nil
}

// dir creates a directory member
func (x *extractor) dir(name string) error {
	_, target, err := x.target(name)
	if err != nil || target == "" {
		return err
	}
	return os.MkdirAll(target, 0755)
}

// file writes a regular member from r
func (x *extractor) file(name string, r io.Reader) error {
	clean, target, err := x.target(name)
	if err != nil || target == "" {
		return err
	}
	if x.opts.excluded(clean) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if err := writeLimited(target, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", clean, err)
	}
	x.written++
	return nil
}

// copyPlain copies a non-archive file into dest under its base name
func (x *extractor) copyPlain(src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := writeLimited(filepath.Join(x.dest, filepath.Base(src)), f); err != nil {
		return err
	}
	x.written++
	return nil
}

// writeLimited copies r to path, refusing more than MaxFileSize bytes
func writeLimited(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(r, MaxFileSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxFileSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
