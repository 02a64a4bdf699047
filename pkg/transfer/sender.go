package transfer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/rescp17/vacuumDrop/pkg/protocol"
)

// Dialer opens outbound connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ProgressFunc receives the cumulative percentage of payload written, 0 to 100.
type ProgressFunc func(percent float64)

// Outcome is the terminal reply observed by the sender.
type Outcome struct {
	Kind    protocol.Kind
	Message string
}

// Sender is the client side of the protocol. Every call uses its own connection.
type Sender struct {
	cfg    *TransferConfig
	dialer Dialer
	log    *slog.Logger
}

func NewSender(cfg *TransferConfig, dialer Dialer, logger *slog.Logger) *Sender {
	if cfg == nil {
		cfg = DefaultTransferConfig()
	}
	if dialer == nil {
		dialer = &net.Dialer{Timeout: cfg.DialTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{cfg: cfg, dialer: dialer, log: logger}
}

// SendText writes one text message and resolves on the first reply or when
// the receiver closes the connection.
func (s *Sender) SendText(ctx context.Context, endpoint Endpoint, text string) (Outcome, error) {
	if endpoint.IsZero() {
		return Outcome{}, ErrNoEndpointSelected
	}
	if text == "" {
		return Outcome{}, ErrEmptyPayload
	}
	if s.cfg.MaxTextSize > 0 && len(protocol.TextPrefix)+len(text) > s.cfg.MaxTextSize {
		return Outcome{}, fmt.Errorf("%w: %d bytes, limit is %d", ErrTextTooLong, len(text), s.cfg.MaxTextSize-len(protocol.TextPrefix))
	}

	conn, err := s.dial(ctx, endpoint)
	if err != nil {
		return Outcome{}, err
	}
	defer s.closeConn(conn)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.setDeadline(ctx, conn)
	if err := writeAll(conn, protocol.EncodeText(text)); err != nil {
		return Outcome{}, s.connErr(ctx, "writing text message", err)
	}
	s.log.Info("Text sent", "to", endpoint.String(), "length", len(text))

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if n == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			return Outcome{Kind: protocol.KindUnknown}, nil
		}
		return Outcome{}, s.connErr(ctx, "reading reply", err)
	}

	reply := buf[:n]
	outcome := Outcome{Kind: protocol.Classify(reply), Message: string(reply)}
	if outcome.Kind == protocol.KindError {
		return outcome, &RemoteError{Reason: protocol.ErrorReason(reply)}
	}
	return outcome, nil
}

// SendFile streams file to endpoint and waits for the receiver's verdict.
// The declared size is the length of the bytes actually read.
func (s *Sender) SendFile(ctx context.Context, endpoint Endpoint, file FileSource, progress ProgressFunc) (Outcome, error) {
	if endpoint.IsZero() {
		return Outcome{}, ErrNoEndpointSelected
	}
	if file == nil {
		return Outcome{}, ErrEmptyPayload
	}
	if progress == nil {
		progress = func(float64) {}
	}

	data, err := file.ReadAll()
	if err != nil {
		return Outcome{}, fmt.Errorf("reading %s: %w", file.Name(), err)
	}
	resized := int64(len(data)) != file.Size()
	if resized {
		s.log.Warn("File size changed since it was selected", "fileName", file.Name(),
			"expected", file.Size(), "actual", len(data))
	}

	meta := protocol.Metadata{
		FileName: file.Name(),
		FileSize: int64(len(data)),
		FileType: file.MimeType(),
		Checksum: checksumOf(file, data, resized),
	}
	header, err := protocol.EncodeFileHeader(meta)
	if err != nil {
		return Outcome{}, err
	}
	chunker, err := NewChunker(protocol.EncodePayload(data), s.cfg.ChunkSize)
	if err != nil {
		return Outcome{}, err
	}

	conn, err := s.dial(ctx, endpoint)
	if err != nil {
		return Outcome{}, err
	}
	defer s.closeConn(conn)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.setDeadline(ctx, conn)
	if err := writeAll(conn, header); err != nil {
		return Outcome{}, s.connErr(ctx, "writing file header", err)
	}
	s.log.Info("Sending file", "to", endpoint.String(), "fileName", meta.FileName, "fileSize", meta.FileSize)

	for {
		chunk, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Outcome{}, err
		}
		s.setDeadline(ctx, conn)
		if err := writeAll(conn, protocol.EncodeChunk(chunk.Data)); err != nil {
			return Outcome{}, s.connErr(ctx, fmt.Sprintf("writing chunk %d", chunk.SequenceNo), err)
		}
		progress(chunker.Progress())
	}
	if meta.FileSize == 0 {
		progress(chunker.Progress())
	}

	if err := writeAll(conn, protocol.EncodeTerminator()); err != nil {
		return Outcome{}, s.connErr(ctx, "writing terminator", err)
	}

	s.setDeadline(ctx, conn)
	return s.awaitVerdict(ctx, conn)
}

// checksumOf prefers the checksum the source already carries. A resized file
// is hashed again.
func checksumOf(file FileSource, data []byte, resized bool) string {
	if cs, ok := file.(ChecksumSource); ok && !resized {
		if sum := cs.Checksum(); sum != "" {
			return sum
		}
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// awaitVerdict reads replies until an ack or an error frame shows up.
func (s *Sender) awaitVerdict(ctx context.Context, conn net.Conn) (Outcome, error) {
	var replies bytes.Buffer
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			replies.Write(buf[:n])
			switch protocol.Classify(replies.Bytes()) {
			case protocol.KindAck:
				return Outcome{Kind: protocol.KindAck, Message: replies.String()}, nil
			case protocol.KindError:
				reply := replies.Bytes()
				return Outcome{Kind: protocol.KindError, Message: string(reply)},
					&RemoteError{Reason: protocol.ErrorReason(reply)}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Outcome{}, fmt.Errorf("%w: connection closed before acknowledgement", ErrConnection)
			}
			return Outcome{}, s.connErr(ctx, "reading reply", err)
		}
	}
}

func (s *Sender) dial(ctx context.Context, endpoint Endpoint) (net.Conn, error) {
	addr := endpoint.Addr()
	policy := s.cfg.RetryPolicy
	if policy == nil {
		policy = &RetryPolicy{}
	}

	for attempt := 0; ; attempt++ {
		dctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
		conn, err := s.dialer.DialContext(dctx, "tcp", addr)
		cancel()
		if err == nil {
			return conn, nil
		}

		err = fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err)
		if ctx.Err() != nil || !policy.IsRetryable(err, attempt) {
			return nil, err
		}

		delay := policy.GetRetryDelay(attempt)
		s.log.Warn("Dial failed, will retry", "addr", addr, "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrConnection, ctx.Err())
		case <-time.After(delay):
		}
	}
}

func (s *Sender) setDeadline(ctx context.Context, conn net.Conn) {
	deadline := time.Now().Add(s.cfg.ReplyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		s.log.Debug("Failed to set connection deadline", "error", err)
	}
}

func (s *Sender) connErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
}

func (s *Sender) closeConn(conn net.Conn) {
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("Failed to close connection", "error", err)
	}
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
