package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFileHeader_DeclaresExactLength(t *testing.T) {
	meta := Metadata{FileName: "résumé.pdf", FileSize: 42, FileType: "application/pdf"}

	frame, err := EncodeFileHeader(meta)
	require.NoError(t, err)

	h, res := MatchFileHeader(frame, 1024)
	require.Equal(t, Match, res)
	assert.Equal(t, len(frame), h.Len())

	decoded, err := ParseMetadata(frame[h.Offset:h.Len()])
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)
}

func TestEncodeFileHeader_DefaultsFileType(t *testing.T) {
	frame, err := EncodeFileHeader(Metadata{FileName: "a", FileSize: 1})
	require.NoError(t, err)

	h, res := MatchFileHeader(frame, 1024)
	require.Equal(t, Match, res)
	meta, err := ParseMetadata(frame[h.Offset:h.Len()])
	require.NoError(t, err)
	assert.Equal(t, DefaultFileType, meta.FileType)
}

func TestEncodeFileHeader_RejectsInvalidMetadata(t *testing.T) {
	_, err := EncodeFileHeader(Metadata{FileName: "", FileSize: 1})
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	_, err = EncodeFileHeader(Metadata{FileName: "x", FileSize: -1})
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestMatchFileHeader(t *testing.T) {
	tests := []struct {
		name   string
		buf    string
		want   MatchResult
		metaLn int
	}{
		{"empty buffer", "", Partial, 0},
		{"prefix in progress", "FILE_TR", Partial, 0},
		{"other frame", "TEXT_MESSAGE:hi", NoMatch, 0},
		{"terminator is not a header", "FILE_TRANSFER_END", NoMatch, 0},
		{"length in progress", "FILE_TRANSFER:12", Partial, 0},
		{"non numeric length", "FILE_TRANSFER:1x:{}", Malformed, 0},
		{"empty length", "FILE_TRANSFER::{}", Malformed, 0},
		{"too many digits", "FILE_TRANSFER:12345678901", Malformed, 0},
		{"over limit", "FILE_TRANSFER:2048:{}", Malformed, 0},
		{"block incomplete", "FILE_TRANSFER:10:{\"a\"", Partial, 10},
		{"complete", "FILE_TRANSFER:2:{}rest", Match, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, got := MatchFileHeader([]byte(tt.buf), 1024)
			assert.Equal(t, tt.want, got)
			if got == Match || (got == Partial && tt.metaLn > 0) {
				assert.Equal(t, tt.metaLn, h.MetaLen)
			}
		})
	}
}

func TestMatchTextAndTerminator(t *testing.T) {
	assert.Equal(t, Match, MatchText([]byte("TEXT_MESSAGE:hello")))
	assert.Equal(t, Match, MatchText([]byte("TEXT_MESSAGE:")))
	assert.Equal(t, Partial, MatchText([]byte("TEXT")))
	assert.Equal(t, NoMatch, MatchText([]byte("FILE_TRANSFER:1:{")))

	assert.Equal(t, Match, MatchTerminator([]byte("FILE_TRANSFER_ENDxyz")))
	assert.Equal(t, Partial, MatchTerminator([]byte("FILE_TRANSFER_")))
	assert.Equal(t, NoMatch, MatchTerminator([]byte("FILE_TRANSFER:")))
}

func TestPayloadEncoding(t *testing.T) {
	for _, size := range []int{0, 1, 2, 3, 4, 4095, 4096, 10000} {
		data := bytes.Repeat([]byte{0xAB}, size)
		encoded := EncodePayload(data)
		assert.Equal(t, EncodedPayloadLen(int64(size)), int64(len(encoded)), "size %d", size)

		decoded, err := DecodePayload(encoded)
		require.NoError(t, err)
		assert.Equal(t, data, decoded)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		reply string
		want  Kind
	}{
		{"FILE_TRANSFER_ACK", KindAck},
		{"FILE_TRANSFER_ERROR: disk full", KindError},
		{"TEXT_MESSAGE_ACK: hello", KindTextAck},
		{"TEXT_MESSAGE_ACK: see FILE_TRANSFER_ERROR in the log", KindTextAck},
		{"TEXT_MESSAGE_ACK: FILE_TRANSFER_ACK", KindTextAck},
		{"hello FILE_TRANSFER_ERROR", KindUnknown},
		{"something else", KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify([]byte(tt.reply)), tt.reply)
	}
}

func TestErrorReason(t *testing.T) {
	assert.Equal(t, "disk full", ErrorReason(EncodeError("disk full")))
	assert.Equal(t, "", ErrorReason([]byte("FILE_TRANSFER_ACK")))
	assert.Equal(t, "", ErrorReason([]byte("FILE_TRANSFER_ERROR")))
	assert.Equal(t, "", ErrorReason([]byte("TEXT_MESSAGE_ACK: FILE_TRANSFER_ERROR: x")))
}

func TestParseMetadata_RejectsTrailingBytes(t *testing.T) {
	_, err := ParseMetadata([]byte(`{"fileName":"a","fileSize":1,"fileType":"x"}QUJD`))
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	_, err = ParseMetadata([]byte(`{"fileName":"a","fileSize":1,"fileT`))
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestCheckMetadataPrefix(t *testing.T) {
	block := `{"fileName":"a","fileSize":0,"fileType":"x"}`
	tests := []struct {
		name    string
		partial string
		wantErr bool
	}{
		{"nothing yet", "", false},
		{"object in progress", block[:10], false},
		{"complete object", block, false},
		{"trailing whitespace", block + "  ", false},
		{"terminator after object", block + "FILE_TRANSFER_END", true},
		{"payload after object", block + "QUJD", true},
		{"not json", "hello", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMetadataPrefix([]byte(tt.partial))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMetadata)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
