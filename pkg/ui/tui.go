package ui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
	"github.com/rescp17/vacuumDrop/pkg/discovery"
	receiverApp "github.com/rescp17/vacuumDrop/pkg/receiver"
	senderApp "github.com/rescp17/vacuumDrop/pkg/sender"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

type mode int

const (
	None mode = iota
	Sender
	Receiver
)

// AppController is the part of an App the TUI talks to.
type AppController interface {
	UIMessages() <-chan tea.Msg
	AppEvents() chan<- appevents.AppEvent
}

// Options configures the App behind the TUI.
type Options struct {
	Receiver receiverApp.Config
	Transfer *transfer.TransferConfig
	Adapter  discovery.Adapter
	Logger   *slog.Logger
}

type model struct {
	mode          mode
	appController AppController
	run           func()
	cancel        context.CancelFunc
	sender        senderModel
	receiver      receiverModel
}

func InitialModel(m mode, opts Options) model {
	if opts.Adapter == nil {
		opts.Adapter = &discovery.MDNSAdapter{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	out := model{mode: m, cancel: cancel}
	switch m {
	case Sender:
		app := senderApp.NewApp(opts.Adapter, opts.Transfer, opts.Logger)
		out.appController = app
		out.run = func() {
			if err := app.Run(ctx); err != nil {
				slog.Error("Sender stopped", "error", err)
			}
		}
		out.sender = initSenderModel()
	case Receiver:
		app := receiverApp.NewApp(opts.Receiver, opts.Adapter, opts.Logger)
		out.appController = app
		out.run = func() { app.Run(ctx, cancel) }
		out.receiver = initReceiverModel(opts.Receiver.Session.PreferredPort)
	}
	return out
}

func (m model) Init() tea.Cmd {
	if m.run != nil {
		go m.run()
	}

	switch m.mode {
	case Sender:
		return m.initSender()
	case Receiver:
		return m.initReceiver()
	default:
		return nil
	}
}

// listenForAppMessages is a command that listens for messages from the app controller.
func (m *model) listenForAppMessages() tea.Cmd {
	return func() tea.Msg {
		return <-m.appController.UIMessages()
	}
}

func (m model) View() string {
	var s string
	switch m.mode {
	case Sender:
		s += m.senderView()
	case Receiver:
		s += m.receiverView()
	default:
		return ""
	}
	s += "\nPress ctrl + c to quit"
	return s
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyCtrlC {
		m.cancel()
		return m, tea.Quit
	}

	switch m.mode {
	case Sender:
		return m.updateSender(msg)
	case Receiver:
		return m.updateReceiver(msg)
	}
	return m, nil
}
