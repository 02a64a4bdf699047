package concurrency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrencyGuard_RejectsSecondTask(t *testing.T) {
	g := NewConcurrencyGuard()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- g.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.True(t, g.Busy())
	assert.ErrorIs(t, g.Execute(func() error { return nil }), ErrBusy)
	assert.ErrorIs(t, g.ExecuteWithContext(context.Background(), func(context.Context) error { return nil }), ErrBusy)

	close(release)
	assert.NoError(t, <-done)
	assert.False(t, g.Busy())
}

func TestConcurrencyGuard_ReturnsTaskError(t *testing.T) {
	g := NewConcurrencyGuard()
	want := errors.New("boom")
	assert.ErrorIs(t, g.ExecuteWithContext(context.Background(), func(context.Context) error { return want }), want)
	assert.False(t, g.Busy())
}

func TestConcurrencyGuard_CancelledContext(t *testing.T) {
	g := NewConcurrencyGuard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := g.ExecuteWithContext(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}
