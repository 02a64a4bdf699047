package fileInfo

import (
	"fmt"
	"os"

	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

var _ transfer.ChecksumSource = nodeSource{}

type nodeSource struct {
	node FileNode
}

// Source exposes a file node to the transfer sender.
func (n FileNode) Source() (transfer.FileSource, error) {
	if n.IsDir {
		return nil, fmt.Errorf("%s is a directory", n.Path)
	}
	return nodeSource{node: n}, nil
}

func (s nodeSource) Name() string     { return s.node.Name }
func (s nodeSource) Size() int64      { return s.node.Size }
func (s nodeSource) MimeType() string { return s.node.MimeType }
func (s nodeSource) Checksum() string { return s.node.Checksum }

func (s nodeSource) ReadAll() ([]byte, error) {
	return os.ReadFile(s.node.Path)
}
