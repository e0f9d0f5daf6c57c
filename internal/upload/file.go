package upload

import (
	"fmt"
	"os"
	"path/filepath"
)

// SelectedFile is the local file the user picked.
type SelectedFile struct {
	Name    string
	Content []byte
}

// SelectFromPath reads a file from disk. The extension is not checked; the
// ".csv" filter of a file picker is advisory only.
func SelectFromPath(path string) (SelectedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SelectedFile{}, fmt.Errorf("read file: %w", err)
	}
	return SelectedFile{Name: filepath.Base(path), Content: b}, nil
}

// Size returns the content length in bytes.
func (f SelectedFile) Size() int { return len(f.Content) }
