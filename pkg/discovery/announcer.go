package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// NewServiceName returns a session-unique instance name.
func NewServiceName() string {
	return ServiceNamePrefix + uuid.New().String()
}

// Announcer owns at most one live announcement. Announcing again, for
// instance after the listening port changed, replaces the previous one.
type Announcer struct {
	adapter Adapter
	log     *slog.Logger

	// lifecycle serialises Announce and Withdraw so a replaced announcement
	// is always stopped before the next one is installed.
	lifecycle sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	current *ServiceInfo
	lastErr error
}

func NewAnnouncer(adapter Adapter, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{adapter: adapter, log: logger}
}

// Announce publishes name at port in the background.
func (a *Announcer) Announce(name string, port int) error {
	if name == "" {
		return fmt.Errorf("announce: empty service name")
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("announce: invalid port %d", port)
	}

	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	a.withdraw()

	info := ServiceInfo{
		Name:   name,
		Type:   DefaultServerType,
		Domain: DefaultDomain,
		Port:   port,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.current = &info
	a.lastErr = nil
	a.mu.Unlock()

	go func() {
		defer close(done)
		if err := a.adapter.Announce(ctx, info); err != nil {
			a.log.Error("Failed to announce service", "name", name, "port", port, "error", err)
			a.mu.Lock()
			a.lastErr = err
			a.mu.Unlock()
		}
	}()

	a.log.Info("Announcing service", "name", name, "type", info.Type, "port", port)
	return nil
}

// Withdraw stops the current announcement and waits for it to go away.
// Safe to call when nothing is announced.
func (a *Announcer) Withdraw() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	a.withdraw()
}

func (a *Announcer) withdraw() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done, a.current = nil, nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Current returns the live announcement, if any.
func (a *Announcer) Current() (ServiceInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return ServiceInfo{}, false
	}
	return *a.current, true
}

// Err reports why the last announcement stopped on its own.
func (a *Announcer) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}
