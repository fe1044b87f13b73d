// Package filesys provides a collection of utility functions for common file
// system operations the engine relies on: directory/file creation, existence
// checks, and the durable-write primitives (SyncDir, WriteFileAtomic) every
// crash-safe write path builds on.
package filesys

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates a directory at the specified path with the given permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	// Get file information for the given path.
	stat, err := os.Stat(dirPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	// The path already exists: error unless force, regardless of what
	// os.Stat's error value itself was (it's nil on a successful stat).
	if stat != nil {
		if !force {
			return os.ErrExist
		}
		// If the path exists and it's not a directory, return an error.
		if !stat.IsDir() {
			return ErrIsNotDir
		}
	}

	// Create all necessary parent directories if they don't exist, with the specified permissions.
	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	// Apply the requested permissions exactly, independent of the umask.
	return os.Chmod(dirPath, permission)
}

// WriteFile writes the provided `contents` to the file at `filePath` with the given `permission`.
// If the file does not exist, it will be created. If it exists, it will be truncated.
func WriteFile(filePath string, permission os.FileMode, contents []byte) error {
	return os.WriteFile(filePath, contents, permission)
}

// Exists checks if a file or directory at the given `file` path exists.
// It returns true if the file/directory exists, false if it does not,
// and an error if there's any other issue checking its status.
func Exists(file string) (bool, error) {
	_, err := os.Stat(file)
	if err == nil {
		return true, nil // Path exists.
	}
	// If the error indicates that the file does not exist, return false.
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// SyncDir fsyncs the directory at `path`, forcing its entries (creates,
// renames, unlinks) to durable storage. This is the directory-fsync fence
// every durability point in the engine relies on: a file fsync alone does
// not guarantee the directory entry that names it survives a crash.
func SyncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}

// WriteFileAtomic writes `contents` to a temp file in the same directory as
// `filePath`, fsyncs it, renames it into place, then fsyncs the parent
// directory. This is the temp+fsync+rename+dirfsync pattern every durable
// snapshot (index, hints, config) in the engine uses.
func WriteFileAtomic(filePath string, permission os.FileMode, contents []byte) error {
	dir := filepath.Dir(filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, permission); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return SyncDir(dir)
}
