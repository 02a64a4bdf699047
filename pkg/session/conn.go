package session

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

const chunkQueueSize = 16

// connSession serves one accepted connection. A reader goroutine turns socket
// reads into chunks and the serving goroutine feeds them to the parser in
// arrival order.
type connSession struct {
	id      uint64
	conn    net.Conn
	parser  *transfer.Parser
	idle    time.Duration
	bufSize int
	log     *slog.Logger

	closeOnce sync.Once
	readErr   error
}

func newConnSession(id uint64, conn net.Conn, cfg Config, handlers transfer.Handlers, log *slog.Logger) *connSession {
	reply := &deadlineWriter{conn: conn, timeout: cfg.Transfer.ReplyTimeout}
	return &connSession{
		id:      id,
		conn:    conn,
		parser:  transfer.NewParser(cfg.Transfer, handlers, reply, log),
		idle:    cfg.IdleTimeout,
		bufSize: cfg.Transfer.ReadBufferSize,
		log:     log,
	}
}

func (m *Manager) serve(cs *connSession) error {
	done := make(chan struct{})
	defer m.untrack(cs)
	defer close(done)

	chunks := make(chan []byte, chunkQueueSize)
	m.group.Go(func() error {
		cs.readLoop(chunks, done)
		return nil
	})

	var (
		timer   *time.Timer
		timeout <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				if cs.readErr != nil {
					cs.log.Warn("Connection read failed", "error", cs.readErr)
				}
				if cs.parser.State() == transfer.StateAwaitingTerminator {
					cs.log.Warn("Connection closed mid-transfer", "bytesReceived", cs.parser.BytesReceived())
				}
				return nil
			}
			if err := cs.parser.Feed(chunk); err != nil {
				cs.log.Warn("Closing connection", "error", err)
				return nil
			}

			if cs.idle > 0 && cs.midFrame() {
				if timer == nil {
					timer = time.NewTimer(cs.idle)
				} else {
					timer.Reset(cs.idle)
				}
				timeout = timer.C
			} else if timer != nil {
				timer.Stop()
				timeout = nil
			}
		case <-timeout:
			cs.log.Warn("Peer stalled mid-frame, closing connection", "idleTimeout", cs.idle,
				"state", cs.parser.State().String(), "bytesReceived", cs.parser.BytesReceived(),
				"buffered", cs.parser.Buffered())
			return nil
		}
	}
}

// midFrame reports whether the parser is waiting for the rest of a frame.
func (cs *connSession) midFrame() bool {
	return cs.parser.State() == transfer.StateAwaitingTerminator || cs.parser.Buffered() > 0
}

// readLoop closes chunks when the connection ends. readErr is set before that.
func (cs *connSession) readLoop(chunks chan<- []byte, done <-chan struct{}) {
	defer close(chunks)
	size := cs.bufSize
	if size <= 0 {
		size = transfer.DefaultReadBufferSize
	}
	buf := make([]byte, size)
	for {
		n, err := cs.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunks <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				cs.readErr = err
			}
			return
		}
	}
}

func (cs *connSession) close() {
	cs.closeOnce.Do(func() {
		if err := cs.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			cs.log.Debug("Failed to close connection", "error", err)
		}
	})
}

// deadlineWriter bounds every reply write.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	return w.conn.Write(p)
}
