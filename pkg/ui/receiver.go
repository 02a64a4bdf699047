package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
	receiverEvent "github.com/rescp17/vacuumDrop/internal/app_events/receiver"
	"github.com/rescp17/vacuumDrop/internal/style"
	"github.com/rescp17/vacuumDrop/internal/util"
)

const maxActivityLines = 8

type receiverState int

const (
	startingServer receiverState = iota
	listening
	serverFailed
)

type receiverModel struct {
	state     receiverState
	spinner   spinner.Model
	port      int
	name      string
	dir       string
	clients   int
	activity  []string
	lastError error
}

func initReceiverModel(port int) receiverModel {
	return receiverModel{
		spinner: style.NewSpinner(),
		port:    port,
		state:   startingServer,
	}
}

func (m *model) initReceiver() tea.Cmd {
	return tea.Batch(m.receiver.spinner.Tick, m.listenForAppMessages())
}

func (r *receiverModel) log(line string) {
	r.activity = append(r.activity, line)
	if len(r.activity) > maxActivityLines {
		r.activity = r.activity[len(r.activity)-maxActivityLines:]
	}
}

func (m *model) updateReceiver(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case receiverEvent.ServerStartedMsg:
		m.receiver.state = listening
		m.receiver.port = msg.Port
		m.receiver.name = msg.Name
		m.receiver.dir = msg.Dir
		return m, m.listenForAppMessages()
	case receiverEvent.ClientsChangedMsg:
		m.receiver.clients = msg.Count
		return m, m.listenForAppMessages()
	case receiverEvent.TextReceivedMsg:
		m.receiver.log(fmt.Sprintf("%s %s", style.LabelStyle.Render(msg.From), style.MessageStyle.Render(msg.Text)))
		return m, m.listenForAppMessages()
	case receiverEvent.FileReceivedMsg:
		m.receiver.log(style.SuccessStyle.Render(fmt.Sprintf("✔ %s (%s) from %s", msg.FileName, util.FormatSize(msg.Size), msg.From)))
		return m, m.listenForAppMessages()
	case receiverEvent.TransferFailedMsg:
		m.receiver.log(style.ErrorStyle.Render(fmt.Sprintf("✘ %s from %s: %v", msg.FileName, msg.From, msg.Err)))
		return m, m.listenForAppMessages()
	case receiverEvent.StatusUpdateMsg:
		m.receiver.log(msg.Message)
		return m, m.listenForAppMessages()
	case appevents.AppErrorMsg:
		m.receiver.lastError = msg.Err
		if m.receiver.state == startingServer {
			m.receiver.state = serverFailed
		}
		return m, m.listenForAppMessages()
	}

	var cmd tea.Cmd
	if m.receiver.state != serverFailed {
		m.receiver.spinner, cmd = m.receiver.spinner.Update(msg)
	}
	return m, cmd
}

func (m model) receiverView() string {
	r := m.receiver
	switch r.state {
	case startingServer:
		return fmt.Sprintf("\n %s Starting server on port %d...", r.spinner.View(), r.port)
	case serverFailed:
		return fmt.Sprintf("\nCould not start the server: %s\n", style.ErrorStyle.Render(r.lastError.Error()))
	}

	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("vacuumdrop receiver") + "\n\n")
	fmt.Fprintf(&b, "%s %s\n", style.LabelStyle.Render("Name:   "), style.HighlightFontStyle.Render(r.name))
	fmt.Fprintf(&b, "%s %d\n", style.LabelStyle.Render("Port:   "), r.port)
	fmt.Fprintf(&b, "%s %s\n", style.LabelStyle.Render("Saving: "), r.dir)
	fmt.Fprintf(&b, "%s %d\n\n", style.LabelStyle.Render("Clients:"), r.clients)

	if len(r.activity) == 0 {
		fmt.Fprintf(&b, "%s Waiting for messages and files...\n", r.spinner.View())
	} else {
		b.WriteString(style.BaseStyle.Render(strings.Join(r.activity, "\n")) + "\n")
	}
	if r.lastError != nil {
		b.WriteString(style.ErrorStyle.Render(r.lastError.Error()) + "\n")
	}
	return b.String()
}
