// Package fileutil provides the file-lookup helpers the score loaders use.
// Score collections distributed from DOS-era games routinely disagree with
// the host filesystem's case (MUS/XMI/HMP assets are frequently referenced
// in uppercase by the data that points at them). The parsers in
// internal/format take an in-memory []byte and do no file I/O; the
// command's ReadScoreFile falls back to FindCaseInsensitive when an exact
// path does not open.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindCaseInsensitive resolves filename within dir ignoring case, returning
// the actual on-disk path.
func FindCaseInsensitive(dir, filename string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, filename)); err == nil {
		return filepath.Join(dir, filename), nil
	}

	searchName := strings.ToLower(filename)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(entry.Name()) == searchName {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("file not found: %s (searched in %s)", filename, dir)
}

// ReadScoreFile reads path, falling back to a case-insensitive directory
// scan if the exact name isn't found.
func ReadScoreFile(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	actual, err := FindCaseInsensitive(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(actual)
}
