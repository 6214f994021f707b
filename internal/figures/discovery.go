package figures

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered figure file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides figure-file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new figure discovery instance rooted at basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindPNGFiles finds all PNG files in the discovery root, sorted by
// modification time (oldest first).
func (d *Discovery) FindPNGFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.basePath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".png") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(d.basePath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// RequireFiles verifies that every named figure file exists and is
// non-empty, returning the first problem found. Paths are checked as
// given, whether absolute or relative to the working directory.
func (d *Discovery) RequireFiles(paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return fmt.Errorf("required figure file %s does not exist", path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat figure file %s: %w", path, err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("figure file %s is empty", path)
		}
	}
	return nil
}
