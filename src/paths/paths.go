// Package paths provides the filesystem helpers shared by the snapshot store,
// the crawler and the event extractor.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimeIDLayout is the layout of snapshot generation identifiers.
// It is fixed width, so lexical order equals chronological order.
const TimeIDLayout = "2006-01-02-15-04-05.000000000"

// TimeID formats t (in UTC) as a sortable generation identifier.
func TimeID(t time.Time) string {
	return t.UTC().Format(TimeIDLayout)
}

// CheckSlash appends a trailing slash when p does not already end with one.
func CheckSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// FilesInFolder returns the regular files directly inside dir, sorted by name.
func FilesInFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// partialMarker tags the temporary files downloads are written to.
const partialMarker = ".part-"

// PartialPattern is the os.CreateTemp pattern for an in-flight download of
// target. The file sits next to target until it is renamed over it.
func PartialPattern(target string) string {
	return "." + filepath.Base(target) + partialMarker + "*"
}

// IsPartial reports whether path names a download temp file.
func IsPartial(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && strings.Contains(base, partialMarker)
}

// RemovePartials deletes download temp files below root that have not been
// written to for olderThan, which is what an interrupted run leaves behind.
// It returns how many were removed. A missing root removes nothing.
func RemovePartials(root string, olderThan time.Duration) (int, error) {
	if !Exists(root) {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsPartial(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean %s: %w", root, err)
	}
	return removed, nil
}

// FileIndex lists every regular file below root in lexical walk order,
// leaving out download temp files. A missing root yields an empty index;
// unreadable subdirectories are skipped.
func FileIndex(root string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}

	files := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Skip the unreadable entry and keep walking its siblings.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !IsPartial(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", root, err)
	}

	return files, nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Within reports whether candidate is root or lies below it.
func Within(root, candidate string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(candidate))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
