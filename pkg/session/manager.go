package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rescp17/vacuumDrop/pkg/discovery"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

var (
	ErrAlreadyStarted = errors.New("session manager already started")
	ErrStopped        = errors.New("session manager stopped")
)

// Announcer publishes the bound port on the network. *discovery.Announcer
// satisfies it.
type Announcer interface {
	Announce(name string, port int) error
	Withdraw()
}

// Handlers supplies the collaborators for accepted connections.
type Handlers struct {
	// Connection builds the parser handlers for one connection.
	Connection func(remote net.Addr) transfer.Handlers
	// ConnectionsChanged receives the live connection count. Optional.
	ConnectionsChanged func(count int)
}

// StaticHandlers serves every connection with the same handlers.
func StaticHandlers(h transfer.Handlers) Handlers {
	return Handlers{Connection: func(net.Addr) transfer.Handlers { return h }}
}

// Manager owns the listening socket and every live connection session.
type Manager struct {
	cfg       Config
	handlers  Handlers
	announcer Announcer
	log       *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	port     int
	nextID   uint64
	sessions map[uint64]*connSession
	stopped  bool

	group    errgroup.Group
	stopOnce sync.Once
	unwatch  func() bool
}

func NewManager(cfg Config, handlers Handlers, announcer Announcer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if cfg.ServiceName == "" {
		cfg.ServiceName = discovery.NewServiceName()
	}
	return &Manager{
		cfg:       cfg,
		handlers:  handlers,
		announcer: announcer,
		log:       logger,
		sessions:  make(map[uint64]*connSession),
	}
}

// Start binds the listener, starts accepting and announces the bound port.
// Cancelling ctx stops the manager.
func (m *Manager) Start(ctx context.Context) (net.Addr, error) {
	if err := m.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, ErrStopped
	}
	if m.listener != nil {
		m.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	m.mu.Unlock()

	ln, err := m.listen(ctx)
	if err != nil {
		return nil, err
	}
	port := ln.Addr().(*net.TCPAddr).Port

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = ln.Close()
		return nil, ErrStopped
	}
	m.listener = ln
	m.port = port
	m.mu.Unlock()

	m.group.Go(func() error { return m.acceptLoop(ln) })
	unwatch := context.AfterFunc(ctx, m.Stop)
	m.mu.Lock()
	m.unwatch = unwatch
	m.mu.Unlock()

	m.log.Info("Listening", "addr", ln.Addr().String(), "preferredPort", m.cfg.PreferredPort)
	if m.announcer != nil {
		if err := m.announcer.Announce(m.cfg.ServiceName, port); err != nil {
			m.log.Warn("Failed to announce service", "name", m.cfg.ServiceName, "error", err)
		}
	}
	return ln.Addr(), nil
}

func (m *Manager) listen(ctx context.Context) (net.Listener, error) {
	var (
		lc      net.ListenConfig
		lastErr error
		tried   int
	)
	for attempt := 0; attempt < m.cfg.MaxPortAttempts; attempt++ {
		port := CandidatePort(m.cfg.PreferredPort, attempt)
		if port > 65535 {
			break
		}
		tried++
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(m.cfg.Host, strconv.Itoa(port)))
		if err == nil {
			return ln, nil
		}
		if !isAddrInUse(err) {
			return nil, fmt.Errorf("%w: binding port %d: %v", transfer.ErrPortsExhausted, port, err)
		}
		lastErr = fmt.Errorf("%w: %d", transfer.ErrPortInUse, port)
		m.log.Warn("Port in use, trying next", "port", port, "attempt", attempt+1)
	}
	if lastErr == nil {
		return nil, fmt.Errorf("%w: no candidate port from %d", transfer.ErrPortsExhausted, m.cfg.PreferredPort)
	}
	return nil, fmt.Errorf("%w after %d attempts from port %d: %w", transfer.ErrPortsExhausted, tried, m.cfg.PreferredPort, lastErr)
}

func (m *Manager) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			m.log.Error("Accept failed", "error", err)
			return fmt.Errorf("%w: accept: %v", transfer.ErrConnection, err)
		}

		cs, ok := m.track(conn)
		if !ok {
			_ = conn.Close()
			return nil
		}
		m.group.Go(func() error { return m.serve(cs) })
	}
}

func (m *Manager) track(conn net.Conn) (*connSession, bool) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, false
	}
	m.nextID++
	id := m.nextID
	log := m.log.With("conn", id, "remote", conn.RemoteAddr().String())

	var handlers transfer.Handlers
	if m.handlers.Connection != nil {
		handlers = m.handlers.Connection(conn.RemoteAddr())
	}
	cs := newConnSession(id, conn, m.cfg, handlers, log)
	m.sessions[id] = cs
	count := len(m.sessions)
	m.mu.Unlock()

	log.Info("Client connected", "activeConnections", count)
	m.notifyCount(count)
	return cs, true
}

func (m *Manager) untrack(cs *connSession) {
	m.mu.Lock()
	_, existed := m.sessions[cs.id]
	delete(m.sessions, cs.id)
	count := len(m.sessions)
	m.mu.Unlock()

	cs.close()
	if existed {
		cs.log.Info("Client disconnected", "activeConnections", count)
		m.notifyCount(count)
	}
}

func (m *Manager) notifyCount(count int) {
	if m.handlers.ConnectionsChanged != nil {
		m.handlers.ConnectionsChanged(count)
	}
}

// Stop closes the listener and every connection, waits for their goroutines
// and withdraws the announcement. It is safe to call more than once and after
// a failed Start.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		ln := m.listener
		unwatch := m.unwatch
		live := make([]*connSession, 0, len(m.sessions))
		for _, cs := range m.sessions {
			live = append(live, cs)
		}
		m.mu.Unlock()

		if unwatch != nil {
			unwatch()
		}
		if ln != nil {
			if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				m.log.Warn("Failed to close listener", "error", err)
			}
		}
		for _, cs := range live {
			cs.close()
		}
		if err := m.group.Wait(); err != nil {
			m.log.Warn("Session manager stopped with error", "error", err)
		}
		if m.announcer != nil {
			m.announcer.Withdraw()
		}
		m.log.Info("Session manager stopped")
	})
}

// Port is the bound port, or zero before Start.
func (m *Manager) Port() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port
}

func (m *Manager) ServiceName() string {
	return m.cfg.ServiceName
}

func (m *Manager) ActiveConnections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
