package discovery

import (
	"context"
	"errors"
	"time"
)

// Browse collects discovery snapshots into a registry until timeout. The
// registry ends up with the last snapshot seen.
func Browse(ctx context.Context, adapter Adapter, timeout time.Duration) (*Registry, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	registry := NewRegistry()
	results := adapter.Discover(ctx, ServiceQuery())
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return registry, nil
			}
			return registry, ctx.Err()
		case result, ok := <-results:
			if !ok {
				return registry, nil
			}
			if result.Error != nil {
				return registry, result.Error
			}
			registry.Replace(result.Services)
		}
	}
}
