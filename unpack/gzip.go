package unpack

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// gzip decompresses a gzip file. A tar stream inside is extracted member by
// member; otherwise the content is written under the name stored in the
// gzip header, or the file name without its .gz suffix.
func (x *extractor) gzip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gzip: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	br := bufio.NewReaderSize(gr, tarMagicOffset+len(magicTar))
	header, _ := br.Peek(tarMagicOffset + len(magicTar))
	if isTarHeader(header) {
		return x.tar(br)
	}

	name := filepath.Base(gr.Name)
	if gr.Name == "" {
		name = filepath.Base(path)
		lower := strings.ToLower(name)
		switch {
		case strings.HasSuffix(lower, ".gz"):
			name = name[:len(name)-3]
		case strings.HasSuffix(lower, ".tgz"):
			name = name[:len(name)-4] + ".tar"
		}
	}
	return x.file(name, br)
}

// tarFile extracts an uncompressed tar archive
func (x *extractor) tarFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tar: %w", err)
	}
	defer f.Close()
	return x.tar(f)
}

// tar extracts every regular file and directory of a tar stream
func (x *extractor) tar(r io.Reader) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := x.dir(header.Name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := x.file(header.Name, tr); err != nil {
				return err
			}
		}
	}
}
