package fileInfo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rescp17/vacuumDrop/pkg/protocol"
)

// FileNode describes a file picked for sending, or a directory of them.
type FileNode struct {
	Name     string     `json:"name"`
	IsDir    bool       `json:"is_dir"`
	Size     int64      `json:"size"`
	MimeType string     `json:"mime_type,omitempty"`
	// Checksum is the hex SHA-256 of a regular file, taken when the node was created.
	Checksum string     `json:"checksum,omitempty"`
	Children []FileNode `json:"children,omitempty"`
	Path     string     `json:"-"`
}

// CreateNode stats path and fills in the mime type and checksum of a regular
// file. Directories are walked recursively; unreadable entries are skipped.
func CreateNode(path string) (FileNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileNode{}, err
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return FileNode{}, fmt.Errorf("%s is not a regular file", path)
	}
	node := FileNode{
		Name:  info.Name(),
		IsDir: info.IsDir(),
		Size:  info.Size(),
		Path:  path,
	}
	if node.IsDir {
		entries, err := os.ReadDir(path)
		if err != nil {
			return FileNode{}, err
		}

		node.Size = 0
		node.Children = make([]FileNode, 0, len(entries))
		for _, entry := range entries {
			childPath := filepath.Join(path, entry.Name())
			child, err := CreateNode(childPath)
			if err != nil {
				slog.Warn("Skipping entry", "path", childPath, "error", err)
				continue
			}
			node.Children = append(node.Children, child)
			node.Size += child.Size
		}
		return node, nil
	}

	node.MimeType = detectMimeType(path)
	if node.Checksum, err = fileSHA256(path); err != nil {
		return FileNode{}, err
	}
	return node, nil
}

func detectMimeType(path string) string {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return protocol.DefaultFileType
	}
	return mime.String()
}

// Files returns the regular files under n in name order, n itself for a file.
func (n FileNode) Files() []FileNode {
	if !n.IsDir {
		return []FileNode{n}
	}
	var out []FileNode
	for _, child := range n.Children {
		out = append(out, child.Files()...)
	}
	return out
}
