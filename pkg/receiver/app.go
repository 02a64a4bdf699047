package receiver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	dnssdlog "github.com/brutella/dnssd/log"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
	"github.com/rescp17/vacuumDrop/internal/app_events/receiver"
	"github.com/rescp17/vacuumDrop/pkg/discovery"
	"github.com/rescp17/vacuumDrop/pkg/history"
	"github.com/rescp17/vacuumDrop/pkg/session"
	"github.com/rescp17/vacuumDrop/pkg/storage"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

// Config selects where the receiver listens, saves and logs.
type Config struct {
	Session     session.Config
	DownloadDir string
	// HistoryPath is the sqlite file; empty disables history.
	HistoryPath string
}

// App is the main application logic controller for the receiver.
type App struct {
	cfg        Config
	manager    *session.Manager
	storage    *storage.DiskSink
	history    *history.Store
	uiMessages chan tea.Msg
	appEvents  chan appevents.AppEvent
	log        *slog.Logger
	runCtx     context.Context
}

// NewApp creates a new receiver application instance. A nil adapter disables
// announcing.
func NewApp(cfg Config, adapter discovery.Adapter, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)

	a := &App{
		cfg:        cfg,
		storage:    storage.NewDiskSink(cfg.DownloadDir, logger),
		uiMessages: make(chan tea.Msg, 32),
		appEvents:  make(chan appevents.AppEvent),
		log:        logger,
		runCtx:     context.Background(),
	}

	var announcer session.Announcer
	if adapter != nil {
		announcer = discovery.NewAnnouncer(adapter, logger)
	}
	a.manager = session.NewManager(cfg.Session, session.Handlers{
		Connection: func(remote net.Addr) transfer.Handlers {
			return a.newConnection(remote).Handlers()
		},
		ConnectionsChanged: func(count int) {
			a.emit(receiver.ClientsChangedMsg{Count: count})
		},
	}, announcer, logger)
	return a
}

func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

func (a *App) AppEvents() chan<- appevents.AppEvent {
	return a.appEvents
}

// Port is the bound port once the server started.
func (a *App) Port() int {
	return a.manager.Port()
}

func (a *App) ServiceName() string {
	return a.manager.ServiceName()
}

// Run starts the server and serves UI events until ctx is done. cancel is
// called when the server cannot start.
func (a *App) Run(ctx context.Context, cancel context.CancelFunc) {
	a.runCtx = ctx

	store, err := history.Open(a.cfg.HistoryPath)
	if err != nil {
		a.sendAndLogError("History disabled", err)
		store, _ = history.Open("")
	}
	a.history = store
	defer func() {
		if err := a.history.Close(); err != nil {
			a.log.Warn("Failed to close history", "error", err)
		}
	}()

	if _, err := a.manager.Start(ctx); err != nil {
		a.sendAndLogError("Failed to start server", err)
		cancel()
		return
	}
	defer a.manager.Stop()

	a.emit(receiver.ServerStartedMsg{Port: a.manager.Port(), Name: a.manager.ServiceName(), Dir: a.storage.Dir})

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-a.appEvents:
			switch e := event.(type) {
			case receiver.PruneHistoryEvent:
				a.pruneHistory(ctx, e.Days)
			case appevents.UIErrorEvent:
				a.log.Error("UI error", "error", e.Err)
			default:
				a.log.Warn("Received unhandled app event", "event", fmt.Sprintf("%T", event))
			}
		}
	}
}

func (a *App) newConnection(remote net.Addr) *FileReceiver {
	return NewFileReceiver(remote.String(), a.storage, a.history, a.emit, a.log.With("remote", remote.String()))
}

func (a *App) pruneHistory(ctx context.Context, days int) {
	if days <= 0 {
		return
	}
	n, err := a.history.Prune(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		a.sendAndLogError("Failed to prune history", err)
		return
	}
	a.emit(receiver.StatusUpdateMsg{Message: fmt.Sprintf("Removed %d history entries", n)})
}

// emit delivers msg unless the app is shutting down.
func (a *App) emit(msg tea.Msg) {
	select {
	case a.uiMessages <- msg:
	case <-a.runCtx.Done():
	}
}

// sendAndLogError is a helper function to both log an error and send it to the UI.
func (a *App) sendAndLogError(baseMessage string, err error) {
	a.log.Error(baseMessage, "error", err)
	a.emit(appevents.AppErrorMsg{Err: fmt.Errorf("%s: %w", baseMessage, err)})
}
