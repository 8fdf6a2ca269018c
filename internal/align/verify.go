// SPDX-License-Identifier: MPL-2.0

package align

import (
	"archive/zip"
	"fmt"
	"strings"
)

// Verify checks that every stored entry in the archive at path starts on an
// alignment-byte boundary, matching `zipalign -c`. It returns a
// *MisalignedEntryError for the first entry that does not.
func Verify(path string, alignment int) (err error) {
	if alignment <= 0 {
		alignment = DefaultAlignment
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("read archive %s: %w", path, err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range zr.File {
		if f.Method != zip.Store || strings.HasSuffix(f.Name, "/") {
			continue
		}
		off, err := f.DataOffset()
		if err != nil {
			return fmt.Errorf("%s: entry %q: %w", path, f.Name, err)
		}
		if off%int64(alignment) != 0 {
			return &MisalignedEntryError{Archive: path, Entry: f.Name, Offset: off, Alignment: alignment}
		}
	}
	return nil
}
