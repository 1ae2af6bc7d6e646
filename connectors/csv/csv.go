package csv

import (
	"os"
	"path/filepath"
)

// Create opens path for writing, creating parent directories first.
func Create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
