package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultFileType is used when the sender cannot tell the content type.
const DefaultFileType = "application/octet-stream"

var ErrInvalidMetadata = errors.New("invalid metadata")

// Metadata is the JSON block embedded in a file header.
type Metadata struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
	// Checksum is the hex SHA-256 of the raw file. Optional on the wire.
	Checksum string `json:"checksum,omitempty"`
}

func (m Metadata) Validate() error {
	if m.FileName == "" {
		return fmt.Errorf("%w: empty file name", ErrInvalidMetadata)
	}
	if m.FileSize < 0 {
		return fmt.Errorf("%w: negative file size %d", ErrInvalidMetadata, m.FileSize)
	}
	return nil
}

func MarshalMetadata(m Metadata) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.FileType == "" {
		m.FileType = DefaultFileType
	}
	return json.Marshal(m)
}

// ParseMetadata decodes exactly one JSON object. Trailing bytes, which show up
// when the declared length overshoots the block, are rejected by json.Unmarshal.
func ParseMetadata(block []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(block, &m); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// CheckMetadataPrefix reports whether partial, the first bytes of a metadata
// block that is still arriving, can still turn into a valid block. It fails
// when the bytes are not JSON or when a complete object is already followed by
// more data, which means the declared length overshoots the block.
func CheckMetadataPrefix(partial []byte) error {
	dec := json.NewDecoder(bytes.NewReader(partial))
	var raw json.RawMessage
	err := dec.Decode(&raw)
	switch {
	case err == nil:
		if rest := bytes.TrimSpace(partial[dec.InputOffset():]); len(rest) > 0 {
			return fmt.Errorf("%w: %d unexpected bytes after the metadata object", ErrInvalidMetadata, len(rest))
		}
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
}
