package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	dnssdlog "github.com/brutella/dnssd/log"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
	"github.com/rescp17/vacuumDrop/internal/app_events/sender"
	"github.com/rescp17/vacuumDrop/pkg/concurrency"
	"github.com/rescp17/vacuumDrop/pkg/discovery"
	"github.com/rescp17/vacuumDrop/pkg/fileInfo"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

// App is the main application logic controller for the sender.
type App struct {
	guard           *concurrency.ConcurrencyGuard
	discoverer      discovery.Adapter
	registry        *discovery.Registry
	sender          *transfer.Sender
	uiMessages      chan tea.Msg            // App -> TUI
	appEvents       chan appevents.AppEvent // TUI -> App
	transferTimeout time.Duration
	transferWG      sync.WaitGroup
	log             *slog.Logger

	mu             sync.Mutex
	selected       string
	cancelTransfer context.CancelFunc
}

// NewApp creates a new sender application instance.
func NewApp(adapter discovery.Adapter, cfg *transfer.TransferConfig, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)

	return &App{
		guard:           concurrency.NewConcurrencyGuard(),
		discoverer:      adapter,
		registry:        discovery.NewRegistry(),
		sender:          transfer.NewSender(cfg, nil, logger),
		uiMessages:      make(chan tea.Msg, 10),
		appEvents:       make(chan appevents.AppEvent),
		transferTimeout: 10 * time.Minute,
		log:             logger,
	}
}

// UIMessages returns the channel for the UI to listen on for updates.
func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

// AppEvents returns a write-only channel for the TUI to send events to the app.
func (a *App) AppEvents() chan<- appevents.AppEvent {
	return a.appEvents
}

// Registry exposes the receivers discovered so far.
func (a *App) Registry() *discovery.Registry {
	return a.registry
}

// Run starts discovery and the event loop and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.runDiscovery(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				a.cancelActiveTransfer()
				a.transferWG.Wait()
				return nil
			case event := <-a.appEvents:
				a.handleEvent(ctx, event)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) handleEvent(ctx context.Context, event appevents.AppEvent) {
	switch e := event.(type) {
	case sender.ReceiverSelectedMsg:
		a.Select(e.Receiver.Name)
	case sender.SendTextMsg:
		a.StartSendText(ctx, e.Text)
	case sender.SendFilesMsg:
		a.StartSendProcess(ctx, e.Files)
	case sender.CancelTransferMsg:
		a.cancelActiveTransfer()
	case appevents.UIErrorEvent:
		a.log.Error("UI error", "error", e.Err)
	default:
		a.log.Warn("Received unhandled app event", "event", fmt.Sprintf("%T", event))
	}
}

// runDiscovery keeps the registry and the UI in step with the network.
func (a *App) runDiscovery(ctx context.Context) error {
	results := a.discoverer.Discover(ctx, discovery.ServiceQuery())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return nil
			}
			if result.Error != nil {
				a.sendAndLogError("Discovery failed", result.Error)
				continue
			}
			a.registry.Replace(result.Services)
			a.emit(ctx, sender.FoundServicesMsg{Services: a.registry.Snapshot()})
		}
	}
}

// Select remembers the receiver by name.
func (a *App) Select(name string) {
	a.mu.Lock()
	a.selected = name
	a.mu.Unlock()
	a.log.Info("Receiver selected", "name", name)
}

// endpoint resolves the selected receiver against the current registry.
func (a *App) endpoint() (transfer.Endpoint, error) {
	a.mu.Lock()
	name := a.selected
	a.mu.Unlock()
	if name == "" {
		return transfer.Endpoint{}, transfer.ErrNoEndpointSelected
	}
	info, ok := a.registry.Lookup(name)
	if !ok {
		return transfer.Endpoint{}, fmt.Errorf("%w: %s is no longer available", transfer.ErrNoEndpointSelected, name)
	}
	return info.Endpoint(), nil
}

// StartSendText sends one text message in the background.
func (a *App) StartSendText(ctx context.Context, text string) {
	a.runGuarded(ctx, func(ctx context.Context) error {
		endpoint, err := a.endpoint()
		if err != nil {
			return err
		}
		outcome, err := a.sender.SendText(ctx, endpoint, text)
		if err != nil {
			return err
		}
		a.emit(ctx, sender.TextSentMsg{Reply: outcome.Message})
		return nil
	}, "Text message failed")
}

// StartSendProcess sends every regular file under files in order, each on
// its own connection.
func (a *App) StartSendProcess(ctx context.Context, files []fileInfo.FileNode) {
	a.runGuarded(ctx, func(ctx context.Context) error {
		if _, err := a.endpoint(); err != nil {
			return err
		}

		var queue []fileInfo.FileNode
		var totalBytes int64
		for _, node := range files {
			for _, f := range node.Files() {
				queue = append(queue, f)
				totalBytes += f.Size
			}
		}
		if len(queue) == 0 {
			return transfer.ErrEmptyPayload
		}

		a.emit(ctx, sender.TransferStartedMsg{TotalFiles: len(queue), TotalBytes: totalBytes})
		var done int64
		for i, f := range queue {
			// looked up per file so a receiver that moved ports is followed
			endpoint, err := a.endpoint()
			if err != nil {
				return err
			}
			src, err := f.Source()
			if err != nil {
				return err
			}

			a.emit(ctx, sender.StatusUpdateMsg{Message: fmt.Sprintf("Sending %s to %s", f.Name, endpoint.Name)})
			lastReported := -1.0
			_, err = a.sender.SendFile(ctx, endpoint, src, func(percent float64) {
				if percent-lastReported < 1 && percent < 100 {
					return
				}
				lastReported = percent
				current := int64(float64(f.Size) * percent / 100)
				a.emit(ctx, sender.ProgressUpdateMsg{
					TotalFiles:       len(queue),
					CompletedFiles:   i,
					CurrentFile:      f.Name,
					FileProgress:     percent,
					TotalBytes:       totalBytes,
					TransferredBytes: done + current,
					OverallProgress:  overall(done+current, totalBytes, i, len(queue), percent),
				})
			})
			if err != nil {
				return fmt.Errorf("sending %s: %w", f.Name, err)
			}
			done += f.Size
		}
		a.emit(ctx, sender.TransferCompleteMsg{Files: len(queue)})
		return nil
	}, "Transfer failed")
}

func overall(transferred, total int64, index, count int, filePercent float64) float64 {
	if total > 0 {
		return float64(transferred) * 100 / float64(total)
	}
	return (float64(index) + filePercent/100) * 100 / float64(count)
}

func (a *App) runGuarded(ctx context.Context, task func(ctx context.Context) error, failure string) {
	a.transferWG.Add(1)
	go func() {
		defer a.transferWG.Done()

		taskCtx, cancel := context.WithTimeout(ctx, a.transferTimeout)
		defer cancel()

		err := a.guard.ExecuteWithContext(taskCtx, func(ctx context.Context) error {
			a.setCancel(cancel)
			defer a.setCancel(nil)
			return task(ctx)
		})
		switch {
		case err == nil:
		case errors.Is(err, concurrency.ErrBusy):
			a.sendAndLogError("A transfer is already in progress", err)
		case errors.Is(taskCtx.Err(), context.Canceled) && ctx.Err() == nil:
			a.log.Info("Transfer cancelled by user")
			a.emit(ctx, sender.TransferCancelledMsg{})
		case ctx.Err() != nil:
			a.log.Info("Transfer stopped during shutdown", "error", err)
		default:
			a.sendAndLogError(failure, err)
		}
	}()
}

func (a *App) setCancel(cancel context.CancelFunc) {
	a.mu.Lock()
	a.cancelTransfer = cancel
	a.mu.Unlock()
}

func (a *App) cancelActiveTransfer() {
	a.mu.Lock()
	cancel := a.cancelTransfer
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// emit delivers msg unless the app is shutting down.
func (a *App) emit(ctx context.Context, msg tea.Msg) {
	select {
	case a.uiMessages <- msg:
	case <-ctx.Done():
	}
}

// sendAndLogError is a helper function to both log an error and send it to the UI.
func (a *App) sendAndLogError(baseMessage string, err error) {
	a.log.Error(baseMessage, "error", err)
	select {
	case a.uiMessages <- appevents.AppErrorMsg{Err: fmt.Errorf("%s: %w", baseMessage, err)}:
	default:
		a.log.Warn("UI message queue full, dropping error", "error", err)
	}
}
