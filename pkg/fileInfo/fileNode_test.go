package fileInfo

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sha(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestCreateNode_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	writeFile(t, path, "hello world\n")

	node, err := CreateNode(path)
	require.NoError(t, err)

	assert.Equal(t, "note.txt", node.Name)
	assert.False(t, node.IsDir)
	assert.Equal(t, int64(12), node.Size)
	assert.Contains(t, node.MimeType, "text/plain")
	assert.Equal(t, sha("hello world\n"), node.Checksum)
}

func TestCreateNode_Directory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "bbb")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "c.txt"), "cc")

	node, err := CreateNode(root)
	require.NoError(t, err)

	assert.True(t, node.IsDir)
	assert.Equal(t, int64(6), node.Size)
	assert.Empty(t, node.Checksum)

	files := node.Files()
	require.Len(t, files, 3)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, "b.txt", files[1].Name)
	assert.Equal(t, "c.txt", files[2].Name)

	_, err = node.Source()
	assert.Error(t, err)
}

func TestCreateNode_Missing(t *testing.T) {
	_, err := CreateNode(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_ReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	writeFile(t, path, "\x00\x01\x02")

	node, err := CreateNode(path)
	require.NoError(t, err)
	src, err := node.Source()
	require.NoError(t, err)

	assert.Equal(t, "data.bin", src.Name())
	assert.Equal(t, int64(3), src.Size())
	assert.Equal(t, "application/octet-stream", src.MimeType())

	checksummed, ok := src.(transfer.ChecksumSource)
	require.True(t, ok)
	assert.Equal(t, sha("\x00\x01\x02"), checksummed.Checksum())

	data, err := src.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)
}
