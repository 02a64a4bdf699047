package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		expected string
	}{
		{"Zero bytes", 0, "0 B"},
		{"Max bytes", 1023, "1023 B"},
		{"Exact 1 KB", 1024, "1 KB"},
		{"1.5 KB", 1536, "1.5 KB"},
		{"1.25 KB", 1280, "1.25 KB"},
		{"1.125 KB", 1152, "1.125 KB"},
		{"Small remainder", 1025, "1.0 KB"},
		{"1.009 KB", 1034, "1.009 KB"},
		{"Max KB", 1048575, "1023.999 KB"},
		{"Scenario file", 10000, "9.765 KB"},
		{"Exact 1 MB", 1048576, "1 MB"},
		{"2.25 MB", 2359296, "2.25 MB"},
		{"2.75 GB", 2952790016, "2.75 GB"},
		{"1.5 TB", 1649267441664, "1.5 TB"},
		{"Exact 1 PB", 1125899906842624, "1 PB"},
		{"Max int64", 9223372036854775807, "8191.999 PB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSize(tt.size))
		})
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		str      string
		width    int
		expected string
	}{
		{"Empty string", "", 5, "     "},
		{"Short string", "abc", 10, "abc       "},
		{"Exact width", "hello", 5, "hello"},
		{"Truncated", "hello world", 10, "hello w..."},
		{"Width 4", "hello", 4, "h..."},
		{"Wide characters", "你好", 8, "你好    "},
		{"Mixed characters", "hello世界", 12, "hello世界   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PadRight(tt.str, tt.width))
		})
	}
}

func TestCheckDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name   string
		path   string
		exists bool
		isDir  bool
	}{
		{"Existing directory", dir, true, true},
		{"Existing file", file, true, false},
		{"Missing path", filepath.Join(dir, "missing"), false, false},
		{"Empty path", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, isDir, err := CheckDirectory(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.exists, exists)
			assert.Equal(t, tt.isDir, isDir)
		})
	}
}

func TestEnsureDirectory(t *testing.T) {
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, EnsureDirectory(nested))
	_, isDir, err := CheckDirectory(nested)
	require.NoError(t, err)
	assert.True(t, isDir)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, EnsureDirectory(file))
}

func TestDefaultDownloadDir(t *testing.T) {
	t.Setenv("XDG_DOWNLOAD_DIR", "/srv/drop")
	assert.Equal(t, "/srv/drop", DefaultDownloadDir())

	t.Setenv("XDG_DOWNLOAD_DIR", "")
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", "Downloads"), DefaultDownloadDir())
}
