package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rescp17/vacuumDrop/internal/util"
	"github.com/rescp17/vacuumDrop/pkg/protocol"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

var ErrUnsafeFileName = errors.New("unsafe file name")

// DiskSink writes received files into Dir. Existing files are overwritten.
type DiskSink struct {
	Dir string
	log *slog.Logger
}

func NewDiskSink(dir string, logger *slog.Logger) *DiskSink {
	if dir == "" {
		dir = util.DefaultDownloadDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskSink{Dir: dir, log: logger}
}

// SanitizeFileName reduces a declared name to a single path element.
func SanitizeFileName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrUnsafeFileName, name)
	}
	if strings.ContainsRune(base, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeFileName, name)
	}
	return base, nil
}

// Save writes data next to its final path and renames it into place.
func (d *DiskSink) Save(meta protocol.Metadata, data []byte) (string, error) {
	name, err := SanitizeFileName(meta.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", transfer.ErrStorageWrite, err)
	}
	if err := util.EnsureDirectory(d.Dir); err != nil {
		return "", fmt.Errorf("%w: preparing %s: %v", transfer.ErrStorageWrite, d.Dir, err)
	}

	tmp, err := os.CreateTemp(d.Dir, "."+name+".part-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", transfer.ErrStorageWrite, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			d.log.Warn("Failed to remove temporary file", "path", tmpPath, "error", err)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("%w: writing %s: %v", transfer.ErrStorageWrite, name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		d.log.Debug("Failed to set file mode", "path", tmpPath, "error", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: closing %s: %v", transfer.ErrStorageWrite, name, err)
	}

	final := filepath.Join(d.Dir, name)
	if err := os.Rename(tmpPath, final); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: renaming into %s: %v", transfer.ErrStorageWrite, final, err)
	}
	d.log.Info("File saved", "path", final, "size", len(data))
	return final, nil
}
