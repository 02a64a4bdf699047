//go:build !windows

package session

import (
	"errors"
	"syscall"
)

// isAddrInUse reports whether err is a bind conflict on the port.
func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
