package images

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var supportedExtensions = []string{".png", ".jpg", ".jpeg"}

// IsSupported reports whether a filename ends in a supported image extension
func IsSupported(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Scan lists the supported images directly inside dir, sorted by filename.
// Subdirectories are skipped even when their name looks like an image.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			slog.Debug("Skipping directory", "name", name)
			continue
		}
		if !IsSupported(name) {
			slog.Debug("Skipping unsupported file", "name", name)
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}

	slog.Info("Scanned image directory", "dir", dir, "entries", len(entries), "images", len(paths))
	return paths, nil
}
