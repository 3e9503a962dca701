package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempPattern is the suffix pattern of in-flight atomic writes. The temp file
// is also prefixed with a dot so directory listings never pick it up.
const TempPattern = ".tmp-*"

// IsTempFile reports whether name looks like a leftover from WriteFileAtomic:
// a dot file ending in ".tmp-" and the digits os.CreateTemp substitutes.
func IsTempFile(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	i := strings.LastIndex(name, ".tmp-")
	if i <= 0 {
		return false
	}
	tail := name[i+len(".tmp-"):]
	if tail == "" {
		return false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// WriteFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path. The previous content of path survives any failure.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return WriteFileAtomicWith(path, data, mode, os.Rename)
}

// WriteFileAtomicWith is WriteFileAtomic with a caller supplied rename step.
func WriteFileAtomicWith(path string, data []byte, mode os.FileMode, rename func(oldpath, newpath string) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, "."+base+TempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmp := f.Name()

	// Removes the temp file if anything fails before the rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", base, err)
	}
	return nil
}

// ReadFileIfExists returns nil, nil when path does not exist.
func ReadFileIfExists(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// RemoveEmptyParents removes dir and its ancestors while they are empty,
// stopping at stop (never removed) or at the first directory for which keep
// returns true.
func RemoveEmptyParents(dir, stop string, keep func(dir string) bool) error {
	stop = filepath.Clean(stop)
	for dir = filepath.Clean(dir); dir != stop && strings.HasPrefix(dir, stop+string(filepath.Separator)); dir = filepath.Dir(dir) {
		if keep != nil && keep(dir) {
			return nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
