package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
	senderEvent "github.com/rescp17/vacuumDrop/internal/app_events/sender"
	"github.com/rescp17/vacuumDrop/internal/style"
	"github.com/rescp17/vacuumDrop/internal/util"
	"github.com/rescp17/vacuumDrop/pkg/discovery"
	"github.com/rescp17/vacuumDrop/pkg/multiFilePicker"
)

var errTransferCancelled = errors.New("transfer cancelled")

// senderState defines the different states of the sender UI.
type senderState int

const (
	findingReceivers senderState = iota
	selectingReceiver
	composing
	selectingFiles
	sendingFiles
	transferComplete
	transferFailed
)

type senderKeyMap struct {
	Files  key.Binding
	Back   key.Binding
	Cancel key.Binding
}

var senderKeys = senderKeyMap{
	Files:  key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "send files")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Cancel: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel transfer")),
}

type senderModel struct {
	state           senderState
	spinner         spinner.Model
	table           table.Model
	input           textinput.Model
	fp              multiFilePicker.Model
	progress        progress.Model
	services        []discovery.ServiceInfo
	selectedService discovery.ServiceInfo
	lastUpdate      senderEvent.ProgressUpdateMsg
	status          string
	lastReply       string
	lastError       error
}

var columns = []table.Column{
	{Title: "Index", Width: 6},
	{Title: "Name", Width: 48},
	{Title: "Address", Width: 16},
	{Title: "Port", Width: 6},
}

func initSenderModel() senderModel {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(0),
	)
	t.SetStyles(style.NewTableStyles())

	ti := textinput.New()
	ti.Placeholder = "type a message and press enter"
	ti.CharLimit = 1000
	ti.Width = 60

	return senderModel{
		state:    findingReceivers,
		spinner:  style.NewSpinner(),
		table:    t,
		input:    ti,
		fp:       multiFilePicker.InitialModel(),
		progress: style.NewProgressBar(),
	}
}

func (m *model) initSender() tea.Cmd {
	return tea.Batch(m.sender.spinner.Tick, m.listenForAppMessages())
}

func (m *model) updateReceiverTable(services []discovery.ServiceInfo) {
	m.sender.services = services
	rows := make([]table.Row, 0, len(services))
	for index, svc := range services {
		addr := ""
		if svc.Addr != nil {
			addr = svc.Addr.String()
		}
		rows = append(rows, table.Row{strconv.Itoa(index), svc.Name, addr, strconv.Itoa(svc.Port)})
	}
	m.sender.table.SetRows(rows)
	m.sender.table.SetHeight(len(rows) + 1)
}

func (m *model) updateSender(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, processed := m.handleSenderAppEvent(msg); processed {
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.sender.state {
	case selectingReceiver:
		cmd = m.updateSelectingReceiverState(msg)
	case composing:
		cmd = m.updateComposingState(msg)
	case selectingFiles:
		cmd = m.updateSelectingFilesState(msg)
	case sendingFiles:
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, senderKeys.Cancel) {
			m.appController.AppEvents() <- senderEvent.CancelTransferMsg{}
		}
	case transferComplete, transferFailed:
		if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEnter {
			m.sender.state = composing
			m.sender.lastError = nil
			m.sender.input.Focus()
			return m, textinput.Blink
		}
	}

	var spinCmd tea.Cmd
	m.sender.spinner, spinCmd = m.sender.spinner.Update(msg)
	return m, tea.Batch(cmd, spinCmd)
}

func (m *model) handleSenderAppEvent(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case senderEvent.FoundServicesMsg:
		slog.Info("Discovery update", "service_count", len(msg.Services))
		if len(msg.Services) > 0 && m.sender.state == findingReceivers {
			m.sender.state = selectingReceiver
		}
		if len(msg.Services) == 0 && m.sender.state == selectingReceiver {
			m.sender.state = findingReceivers
		}
		m.updateReceiverTable(msg.Services)
		return m.listenForAppMessages(), true
	case senderEvent.TransferStartedMsg:
		m.sender.state = sendingFiles
		m.sender.lastUpdate = senderEvent.ProgressUpdateMsg{TotalFiles: msg.TotalFiles, TotalBytes: msg.TotalBytes}
		return tea.Batch(m.listenForAppMessages(), m.sender.progress.SetPercent(0)), true
	case senderEvent.ProgressUpdateMsg:
		m.sender.lastUpdate = msg
		return tea.Batch(m.listenForAppMessages(), m.sender.progress.SetPercent(msg.OverallProgress/100)), true
	case senderEvent.StatusUpdateMsg:
		m.sender.status = msg.Message
		return m.listenForAppMessages(), true
	case senderEvent.TextSentMsg:
		m.sender.lastReply = msg.Reply
		return m.listenForAppMessages(), true
	case senderEvent.TransferCompleteMsg:
		m.sender.state = transferComplete
		return m.listenForAppMessages(), true
	case senderEvent.TransferCancelledMsg:
		m.sender.state = transferFailed
		m.sender.lastError = errTransferCancelled
		return m.listenForAppMessages(), true
	case appevents.AppErrorMsg:
		m.sender.lastError = msg.Err
		if m.sender.state == sendingFiles {
			m.sender.state = transferFailed
		}
		return m.listenForAppMessages(), true
	case progress.FrameMsg:
		pm, cmd := m.sender.progress.Update(msg)
		m.sender.progress = pm.(progress.Model)
		return cmd, true
	}
	return nil, false
}

func (m *model) updateSelectingReceiverState(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEnter {
		idx := m.sender.table.Cursor()
		if idx < 0 || idx >= len(m.sender.services) {
			slog.Error("Cursor out of sync", "cursor", idx, "services", len(m.sender.services))
			return nil
		}
		m.sender.selectedService = m.sender.services[idx]
		m.appController.AppEvents() <- senderEvent.ReceiverSelectedMsg{Receiver: m.sender.selectedService}
		m.sender.state = composing
		m.sender.input.Focus()
		return textinput.Blink
	}
	var cmd tea.Cmd
	m.sender.table, cmd = m.sender.table.Update(msg)
	return cmd
}

func (m *model) updateComposingState(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, senderKeys.Back):
			m.sender.input.Blur()
			m.sender.state = selectingReceiver
			return nil
		case key.Matches(k, senderKeys.Files):
			m.sender.input.Blur()
			m.sender.state = selectingFiles
			return nil
		case k.Type == tea.KeyEnter:
			text := m.sender.input.Value()
			if text == "" {
				return nil
			}
			m.appController.AppEvents() <- senderEvent.SendTextMsg{Text: text}
			m.sender.input.Reset()
			m.sender.lastError = nil
			return nil
		}
	}
	var cmd tea.Cmd
	m.sender.input, cmd = m.sender.input.Update(msg)
	return cmd
}

func (m *model) updateSelectingFilesState(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case multiFilePicker.SelectedFileNodeMsg:
		m.appController.AppEvents() <- senderEvent.SendFilesMsg{Files: msg.Files}
		return nil
	case multiFilePicker.CancelledMsg:
		m.sender.state = composing
		m.sender.input.Focus()
		return textinput.Blink
	}
	var cmd tea.Cmd
	m.sender.fp, cmd = m.sender.fp.Update(msg)
	return cmd
}

func (m *model) senderView() string {
	s := m.sender
	target := style.HighlightFontStyle.Render(s.selectedService.Name)
	var out string

	switch s.state {
	case findingReceivers:
		out = fmt.Sprintf("\n%s Finding receivers...", s.spinner.View())
	case selectingReceiver:
		out = fmt.Sprintf("\n✔  Found %d receiver(s)\n", len(s.services))
		out += style.BaseStyle.Render(s.table.View()) + "\n"
		out += "Use arrow keys to navigate, Enter to select."
	case composing:
		out = fmt.Sprintf("Receiver: %s\n\n%s\n", target, s.input.View())
		if s.lastReply != "" {
			out += "\n" + style.SuccessStyle.Render(s.lastReply) + "\n"
		}
		out += "\n" + style.HelpStyle.Render(fmt.Sprintf("enter send text • %s %s • %s %s",
			senderKeys.Files.Help().Key, senderKeys.Files.Help().Desc,
			senderKeys.Back.Help().Key, senderKeys.Back.Help().Desc))
	case selectingFiles:
		out = fmt.Sprintf("Receiver: %s\n%s\n", target, s.fp.View())
	case sendingFiles:
		u := s.lastUpdate
		out = fmt.Sprintf("\n%s Sending to %s\n\n", s.spinner.View(), target)
		out += fmt.Sprintf("File %d/%d %s\n", u.CompletedFiles+1, u.TotalFiles, u.CurrentFile)
		out += s.progress.View() + "\n"
		out += fmt.Sprintf("%s / %s\n", util.FormatSize(u.TransferredBytes), util.FormatSize(u.TotalBytes))
		if s.status != "" {
			out += style.HelpStyle.Render(s.status) + "\n"
		}
		out += style.HelpStyle.Render(senderKeys.Cancel.Help().Key + " " + senderKeys.Cancel.Help().Desc)
	case transferComplete:
		out = fmt.Sprintf("\nSent %d file(s) to %s 🎉\n\nPress Enter to continue.", s.lastUpdate.TotalFiles, target)
	case transferFailed:
		out = "\nTransfer failed.\nPress Enter to continue."
	default:
		out = "Internal error: unknown sender state"
	}

	if s.lastError != nil {
		out += "\n" + style.ErrorStyle.Render(s.lastError.Error())
	}
	return out
}
