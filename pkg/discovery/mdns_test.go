package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMDNSAdapter_AnnounceStopsOnCancel(t *testing.T) {
	// mDNS needs a multicast-capable interface
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := &MDNSAdapter{}
	info := ServiceInfo{
		Name:   NewServiceName(),
		Type:   "_vacuumdrop-test._tcp",
		Domain: DefaultDomain,
		Port:   8080,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- adapter.Announce(ctx, info)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err, "cancelling the context ends the announcement cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("announcement did not stop in time")
	}
}

func TestMDNSAdapter_Discover(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := &MDNSAdapter{}

	info := ServiceInfo{
		Name:   NewServiceName(),
		Type:   "_vacuumdrop-test._tcp",
		Domain: DefaultDomain,
		Port:   8080,
	}
	go func() {
		_ = adapter.Announce(ctx, info)
	}()
	time.Sleep(300 * time.Millisecond)

	queryCtx, queryCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer queryCancel()

	outCh := adapter.Discover(queryCtx, info.Type+"."+info.Domain+".")
	for {
		select {
		case result, ok := <-outCh:
			require.True(t, ok, "discovery ended before the service was seen")
			require.NoError(t, result.Error)
			for _, s := range result.Services {
				if s.Name != info.Name {
					continue
				}
				assert.Equal(t, info.Type, s.Type)
				assert.Equal(t, info.Domain, s.Domain)
				assert.Equal(t, info.Port, s.Port)
				return
			}
		case <-queryCtx.Done():
			t.Fatalf("service %s was never discovered", info.Name)
		}
	}
}
