package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rescp17/vacuumDrop/pkg/protocol"
)

// State is the receiver state of one connection.
type State int

const (
	// StateIdle waits for a text message or a file header.
	StateIdle State = iota
	// StateAwaitingTerminator accumulates payload until the declared size is
	// reached and then expects the terminator.
	StateAwaitingTerminator
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingTerminator:
		return "awaiting_terminator"
	default:
		return "unknown"
	}
}

// maxPayloadPrealloc caps the initial payload buffer so a large declared size
// does not allocate before any bytes arrive.
const maxPayloadPrealloc = 1 << 20

// Parser reconstructs text messages and files from the byte stream of one
// connection and writes replies back on it. It is not safe for concurrent use;
// the owning connection goroutine is the only caller.
type Parser struct {
	cfg      *TransferConfig
	text     TextSink
	storage  StorageSink
	reporter Reporter
	reply    io.Writer
	log      *slog.Logger

	state State
	buf   []byte

	meta          *protocol.Metadata
	payload       []byte
	bytesReceived int64
	remaining     int64
}

func NewParser(cfg *TransferConfig, handlers Handlers, reply io.Writer, logger *slog.Logger) *Parser {
	if cfg == nil {
		cfg = DefaultTransferConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		cfg:      cfg,
		text:     handlers.Text,
		storage:  handlers.Storage,
		reporter: handlers.Reporter,
		reply:    reply,
		log:      logger,
	}
}

func (p *Parser) State() State {
	return p.state
}

// BytesReceived counts payload bytes of the current transfer.
func (p *Parser) BytesReceived() int64 {
	return p.bytesReceived
}

// Metadata returns the metadata of the transfer in progress, if any.
func (p *Parser) Metadata() (protocol.Metadata, bool) {
	if p.meta == nil {
		return protocol.Metadata{}, false
	}
	return *p.meta, true
}

// Buffered is the number of input bytes not yet consumed. In StateIdle a
// non-zero value means a frame is only partly received.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Reset drops any transfer in progress together with buffered input.
func (p *Parser) Reset() {
	p.resetTransfer()
	p.buf = nil
}

func (p *Parser) resetTransfer() {
	p.state = StateIdle
	p.meta = nil
	p.payload = nil
	p.bytesReceived = 0
	p.remaining = 0
}

// Feed consumes one chunk in arrival order. Content errors are answered with
// an error frame and never returned; the returned error is always a failure to
// write a reply, after which the connection is unusable.
func (p *Parser) Feed(chunk []byte) error {
	p.buf = append(p.buf, chunk...)
	for {
		progressed, err := p.step()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

func (p *Parser) step() (bool, error) {
	switch p.state {
	case StateIdle:
		return p.stepIdle()
	case StateAwaitingTerminator:
		return p.stepAwaiting()
	default:
		return false, fmt.Errorf("%w: unknown parser state %d", ErrProtocol, p.state)
	}
}

func (p *Parser) stepIdle() (bool, error) {
	if len(p.buf) == 0 {
		return false, nil
	}

	textRes := protocol.MatchText(p.buf)
	if textRes == protocol.Match {
		text := string(p.buf[len(protocol.TextPrefix):])
		p.buf = nil
		p.log.Info("Text message received", "length", len(text))
		if p.text != nil {
			p.text.HandleText(text)
		}
		return true, p.write(protocol.EncodeTextAck(text))
	}

	header, headerRes := protocol.MatchFileHeader(p.buf, p.cfg.MaxMetadataSize)
	switch headerRes {
	case protocol.Match:
		block := p.buf[header.Offset:header.Len()]
		meta, err := protocol.ParseMetadata(block)
		if err != nil {
			p.buf = nil
			return true, p.fail(nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err))
		}
		p.buf = p.buf[header.Len():]
		return true, p.begin(meta)
	case protocol.Malformed:
		p.buf = nil
		return true, p.fail(nil, fmt.Errorf("%w: bad file header", ErrMalformedMetadata))
	case protocol.Partial:
		if header.Offset > 0 && len(p.buf) > header.Offset {
			if err := protocol.CheckMetadataPrefix(p.buf[header.Offset:]); err != nil {
				p.buf = nil
				return true, p.fail(nil, fmt.Errorf("%w: declared length %d: %v", ErrMalformedMetadata, header.MetaLen, err))
			}
		}
		return false, nil
	}

	if textRes == protocol.Partial {
		return false, nil
	}

	p.log.Debug("Dropping unrecognised bytes", "length", len(p.buf))
	p.buf = nil
	return false, nil
}

func (p *Parser) begin(meta protocol.Metadata) error {
	if p.cfg.MaxFileSize > 0 && meta.FileSize > p.cfg.MaxFileSize {
		p.buf = nil
		return p.fail(&meta, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, meta.FileSize, p.cfg.MaxFileSize))
	}

	encodedLen := protocol.EncodedPayloadLen(meta.FileSize)
	prealloc := encodedLen
	if prealloc > maxPayloadPrealloc {
		prealloc = maxPayloadPrealloc
	}

	p.meta = &meta
	p.payload = make([]byte, 0, prealloc)
	p.bytesReceived = 0
	p.remaining = encodedLen
	p.state = StateAwaitingTerminator
	p.log.Info("Started receiving file", "fileName", meta.FileName, "fileSize", meta.FileSize, "fileType", meta.FileType)
	return nil
}

func (p *Parser) stepAwaiting() (bool, error) {
	if p.remaining > 0 {
		if len(p.buf) == 0 {
			return false, nil
		}
		n := int64(len(p.buf))
		if n > p.remaining {
			n = p.remaining
		}
		p.payload = append(p.payload, p.buf[:n]...)
		p.buf = p.buf[n:]
		p.bytesReceived += n
		p.remaining -= n
		return true, nil
	}

	switch protocol.MatchTerminator(p.buf) {
	case protocol.Partial:
		return false, nil
	case protocol.Match:
		p.buf = p.buf[len(protocol.Terminator):]
		return true, p.finalize()
	default:
		meta := p.meta
		p.buf = nil
		return true, p.fail(meta, fmt.Errorf("%w: payload exceeds declared size of %d bytes", ErrProtocol, meta.FileSize))
	}
}

func (p *Parser) finalize() error {
	meta := p.meta
	received := p.bytesReceived

	data, err := protocol.DecodePayload(p.payload)
	if err != nil {
		return p.fail(meta, fmt.Errorf("%w: %v", ErrMalformedPayload, err))
	}
	if int64(len(data)) != meta.FileSize {
		return p.fail(meta, fmt.Errorf("%w: decoded %d bytes, declared %d", ErrMalformedPayload, len(data), meta.FileSize))
	}
	if meta.Checksum != "" {
		sum := sha256.Sum256(data)
		if actual := hex.EncodeToString(sum[:]); actual != meta.Checksum {
			return p.fail(meta, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, meta.Checksum, actual))
		}
	}

	if p.storage == nil {
		return p.fail(meta, fmt.Errorf("%w: no storage configured", ErrStorageWrite))
	}
	path, err := p.storage.Save(*meta, data)
	if err != nil {
		if !errors.Is(err, ErrStorageWrite) {
			err = fmt.Errorf("%w: %v", ErrStorageWrite, err)
		}
		return p.fail(meta, err)
	}

	p.resetTransfer()
	p.log.Info("File received", "fileName", meta.FileName, "fileSize", meta.FileSize, "path", path)
	p.report(Result{Meta: meta, Path: path, BytesReceived: received})
	return p.write(protocol.EncodeAck())
}

// fail answers with an error frame and returns to idle.
func (p *Parser) fail(meta *protocol.Metadata, cause error) error {
	received := p.bytesReceived
	p.resetTransfer()

	attrs := []any{"error", cause}
	if meta != nil {
		attrs = append(attrs, "fileName", meta.FileName)
	}
	p.log.Warn("File transfer rejected", attrs...)

	p.report(Result{Meta: meta, BytesReceived: received, Err: cause})
	return p.write(protocol.EncodeError(cause.Error()))
}

func (p *Parser) report(r Result) {
	if p.reporter != nil {
		p.reporter.TransferFinished(r)
	}
}

func (p *Parser) write(frame []byte) error {
	if p.reply == nil {
		return nil
	}
	if _, err := p.reply.Write(frame); err != nil {
		return fmt.Errorf("%w: writing reply: %v", ErrConnection, err)
	}
	return nil
}
