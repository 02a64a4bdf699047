package session

import (
	"errors"
	"time"

	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

const (
	DefaultPort            = 1234
	DefaultMaxPortAttempts = 20
)

// Config controls where the manager listens and how connections are served.
type Config struct {
	// Host to bind; empty listens on all interfaces.
	Host string
	// PreferredPort is tried first. Zero asks the kernel for any free port.
	PreferredPort   int
	MaxPortAttempts int
	// IdleTimeout overrides Transfer.IdleTimeout when non-zero.
	IdleTimeout time.Duration
	// ServiceName is announced on the network. Generated when empty.
	ServiceName string
	Transfer    *transfer.TransferConfig
}

func DefaultConfig() Config {
	return Config{
		PreferredPort:   DefaultPort,
		MaxPortAttempts: DefaultMaxPortAttempts,
		Transfer:        transfer.DefaultTransferConfig(),
	}
}

func (c Config) Validate() error {
	if c.PreferredPort < 0 || c.PreferredPort > 65535 {
		return errors.New("preferred port must be between 0 and 65535")
	}
	if c.MaxPortAttempts <= 0 {
		return errors.New("max port attempts must be positive")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle timeout must not be negative")
	}
	if c.Transfer != nil {
		return c.Transfer.Validate()
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxPortAttempts == 0 {
		c.MaxPortAttempts = DefaultMaxPortAttempts
	}
	if c.Transfer == nil {
		c.Transfer = transfer.DefaultTransferConfig()
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = c.Transfer.IdleTimeout
	}
	return c
}

// CandidatePort is the port tried on the given zero-based attempt.
func CandidatePort(basePort, attempt int) int {
	return basePort + attempt
}
