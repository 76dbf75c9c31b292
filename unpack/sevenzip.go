package unpack

import (
	"fmt"

	"github.com/bodgit/sevenzip"
)

// sevenZip extracts every member of a 7z archive
func (x *extractor) sevenZip(path string) error {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open 7z: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			if err := x.dir(f.Name); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		err = x.file(f.Name, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
