package sender

import (
	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
	"github.com/rescp17/vacuumDrop/pkg/discovery"
	"github.com/rescp17/vacuumDrop/pkg/fileInfo"
)

// --- App Events (from TUI to App) ---

// ReceiverSelectedMsg records the receiver later sends go to. Only the name is
// kept; the address is looked up again on every send.
type ReceiverSelectedMsg struct {
	appevents.Event
	Receiver discovery.ServiceInfo
}

type SendTextMsg struct {
	appevents.Event
	Text string
}

// SendFilesMsg sends every regular file under Files, one connection each.
type SendFilesMsg struct {
	appevents.Event
	Files []fileInfo.FileNode
}

type CancelTransferMsg struct {
	appevents.Event
}

var (
	_ appevents.AppEvent = ReceiverSelectedMsg{}
	_ appevents.AppEvent = SendTextMsg{}
	_ appevents.AppEvent = SendFilesMsg{}
	_ appevents.AppEvent = CancelTransferMsg{}
)

// --- UI Messages (from App to TUI) ---

type FoundServicesMsg struct {
	appevents.UIMessage
	Services []discovery.ServiceInfo
}

type StatusUpdateMsg struct {
	appevents.UIMessage
	Message string
}

type TransferStartedMsg struct {
	appevents.UIMessage
	TotalFiles int
	TotalBytes int64
}

type ProgressUpdateMsg struct {
	appevents.UIMessage
	TotalFiles       int
	CompletedFiles   int
	CurrentFile      string
	FileProgress     float64 // percentage 0-100 of the current file
	TotalBytes       int64
	TransferredBytes int64
	OverallProgress  float64 // percentage 0-100
}

type TransferCompleteMsg struct {
	appevents.UIMessage
	Files int
}

type TextSentMsg struct {
	appevents.UIMessage
	Reply string
}

type TransferCancelledMsg struct {
	appevents.UIMessage
}
