package protocol

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
)

// Kind identifies one frame of the wire protocol.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindFileHeader
	KindPayload
	KindTerminator
	KindAck
	KindError
	KindTextAck
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFileHeader:
		return "file_header"
	case KindPayload:
		return "payload"
	case KindTerminator:
		return "terminator"
	case KindAck:
		return "ack"
	case KindError:
		return "error"
	case KindTextAck:
		return "text_ack"
	default:
		return "unknown"
	}
}

// Control literals. Everything on the wire is ASCII except the text body,
// the metadata JSON and the base64 payload.
const (
	TextPrefix       = "TEXT_MESSAGE:"
	FileHeaderPrefix = "FILE_TRANSFER:"
	Terminator       = "FILE_TRANSFER_END"
	Ack              = "FILE_TRANSFER_ACK"
	ErrorPrefix      = "FILE_TRANSFER_ERROR"
	TextAckPrefix    = "TEXT_MESSAGE_ACK"
)

// maxLengthDigits bounds the decimal metadata length field.
const maxLengthDigits = 10

// MatchResult is the answer of a prefix predicate over a partially received buffer.
type MatchResult int

const (
	// NoMatch means the buffer cannot start the frame.
	NoMatch MatchResult = iota
	// Partial means the buffer is a valid beginning of the frame but more bytes are needed.
	Partial
	// Match means the whole frame header is present.
	Match
	// Malformed means the buffer starts the frame but violates its syntax.
	Malformed
)

func (r MatchResult) String() string {
	switch r {
	case Partial:
		return "partial"
	case Match:
		return "match"
	case Malformed:
		return "malformed"
	default:
		return "no_match"
	}
}

// Header describes a file header found at the start of a buffer.
type Header struct {
	// MetaLen is the declared byte length of the JSON metadata block.
	MetaLen int
	// Offset is where the JSON block starts.
	Offset int
}

// Len is the total number of bytes taken by the header including the metadata block.
func (h Header) Len() int {
	return h.Offset + h.MetaLen
}

// EncodeText builds a text message frame.
func EncodeText(text string) []byte {
	return []byte(TextPrefix + text)
}

// EncodeTextAck builds the reply a receiver writes after delivering a text message.
func EncodeTextAck(text string) []byte {
	return []byte(TextAckPrefix + ": " + text)
}

// EncodeFileHeader builds FILE_TRANSFER:<len>:<json> for meta.
func EncodeFileHeader(meta Metadata) ([]byte, error) {
	block, err := MarshalMetadata(meta)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(FileHeaderPrefix) + maxLengthDigits + 1 + len(block))
	buf.WriteString(FileHeaderPrefix)
	buf.WriteString(strconv.Itoa(len(block)))
	buf.WriteByte(':')
	buf.Write(block)
	return buf.Bytes(), nil
}

// EncodeChunk returns a payload chunk. Chunks carry no framing of their own;
// the receiver bounds the payload with the declared file size.
func EncodeChunk(chunk []byte) []byte {
	return chunk
}

// EncodeTerminator returns the end-of-payload marker.
func EncodeTerminator() []byte {
	return []byte(Terminator)
}

// EncodeAck returns the success reply.
func EncodeAck() []byte {
	return []byte(Ack)
}

// EncodeError returns the failure reply with a human readable reason.
func EncodeError(reason string) []byte {
	return []byte(fmt.Sprintf("%s: %s", ErrorPrefix, reason))
}

// EncodePayload base64-encodes the file content for the wire.
func EncodePayload(data []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(out, data)
	return out
}

// DecodePayload reverses EncodePayload.
func DecodePayload(encoded []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(out, encoded)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// EncodedPayloadLen is the exact number of payload bytes on the wire for a file of fileSize bytes.
func EncodedPayloadLen(fileSize int64) int64 {
	return (fileSize + 2) / 3 * 4
}

func matchPrefix(buf []byte, prefix string) MatchResult {
	if len(buf) < len(prefix) {
		if bytes.HasPrefix([]byte(prefix), buf) {
			return Partial
		}
		return NoMatch
	}
	if string(buf[:len(prefix)]) == prefix {
		return Match
	}
	return NoMatch
}

// MatchText reports whether buf starts with a text message frame.
func MatchText(buf []byte) MatchResult {
	return matchPrefix(buf, TextPrefix)
}

// MatchTerminator reports whether buf starts with the terminator.
func MatchTerminator(buf []byte) MatchResult {
	return matchPrefix(buf, Terminator)
}

// MatchFileHeader reports whether buf starts with a complete file header and
// returns its declared metadata length. Declared lengths above maxMetaLen are malformed.
func MatchFileHeader(buf []byte, maxMetaLen int) (Header, MatchResult) {
	if r := matchPrefix(buf, FileHeaderPrefix); r != Match {
		return Header{}, r
	}
	rest := buf[len(FileHeaderPrefix):]
	sep := bytes.IndexByte(rest, ':')
	if sep < 0 {
		if len(rest) > maxLengthDigits || !allDigits(rest) {
			return Header{}, Malformed
		}
		return Header{}, Partial
	}
	digits := rest[:sep]
	if len(digits) == 0 || len(digits) > maxLengthDigits || !allDigits(digits) {
		return Header{}, Malformed
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil || n > maxMetaLen {
		return Header{}, Malformed
	}
	h := Header{MetaLen: n, Offset: len(FileHeaderPrefix) + sep + 1}
	if len(buf) < h.Len() {
		return h, Partial
	}
	return h, Match
}

func allDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Classify maps a reply received by a sender to its frame kind. Replies are
// matched on their leading literal only, since a text ack echoes user text
// that may contain any of the other literals.
func Classify(reply []byte) Kind {
	switch {
	case bytes.HasPrefix(reply, []byte(TextAckPrefix)):
		return KindTextAck
	case bytes.HasPrefix(reply, []byte(ErrorPrefix)):
		return KindError
	case bytes.HasPrefix(reply, []byte(Ack)):
		return KindAck
	default:
		return KindUnknown
	}
}

// ErrorReason extracts the human readable suffix of an error reply.
func ErrorReason(reply []byte) string {
	if !bytes.HasPrefix(reply, []byte(ErrorPrefix)) {
		return ""
	}
	reason := reply[len(ErrorPrefix):]
	reason = bytes.TrimPrefix(reason, []byte(":"))
	return string(bytes.TrimSpace(reason))
}
