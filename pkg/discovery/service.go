package discovery

import (
	"context"
	"net"

	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

const (
	DefaultServerType = "_file._tcp"
	DefaultDomain     = "local"
	// ServiceNamePrefix is followed by a per-process UUID.
	ServiceNamePrefix = "FileServer-"
)

type ServiceInfo struct {
	Name   string // instance name, e.g. "FileServer-<uuid>"
	Type   string // service type, e.g. "_file._tcp"
	Domain string // domain, e.g. "local"
	Addr   net.IP
	Port   int
}

// Endpoint converts the record into the address a sender dials.
func (s ServiceInfo) Endpoint() transfer.Endpoint {
	host := ""
	if s.Addr != nil {
		host = s.Addr.String()
	}
	return transfer.Endpoint{Name: s.Name, Host: host, Port: s.Port}
}

// DiscoveryResult contains either a snapshot of the services seen so far or an error.
type DiscoveryResult struct {
	Services []ServiceInfo
	Error    error
}

type Adapter interface {
	// Announce publishes service until ctx is cancelled.
	Announce(ctx context.Context, service ServiceInfo) error
	// Discover browses for service and emits snapshots until ctx is cancelled.
	Discover(ctx context.Context, service string) <-chan DiscoveryResult
}

// ServiceQuery is the browse string for the default service type.
func ServiceQuery() string {
	return DefaultServerType + "." + DefaultDomain + "."
}
