package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckDirectory reports whether path exists and is a directory. A missing
// path is not an error.
func CheckDirectory(path string) (exists bool, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.IsDir(), nil
}

// EnsureDirectory creates path if missing and fails when it is a file.
func EnsureDirectory(path string) error {
	exists, isDir, err := CheckDirectory(path)
	if err != nil {
		return err
	}
	if exists && !isDir {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	if !exists {
		return os.MkdirAll(path, 0o755)
	}
	return nil
}

// DefaultDownloadDir is $XDG_DOWNLOAD_DIR, then ~/Downloads, then the
// working directory.
func DefaultDownloadDir() string {
	if dir := os.Getenv("XDG_DOWNLOAD_DIR"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Downloads")
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
