package unpack

import (
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

// rar extracts every member of a RAR archive, following multi-volume sets
func (x *extractor) rar(path string) error {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read rar entry: %w", err)
		}

		if header.IsDir {
			if err := x.dir(header.Name); err != nil {
				return err
			}
			continue
		}
		if err := x.file(header.Name, r); err != nil {
			return err
		}
	}
}
