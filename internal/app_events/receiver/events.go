package receiver

import (
	appevents "github.com/rescp17/vacuumDrop/internal/app_events"
)

// --- UI to App Events ---

// PruneHistoryEvent asks the App to drop history entries older than Days.
type PruneHistoryEvent struct {
	appevents.Event
	Days int
}

// --- App to UI Messages ---

// ServerStartedMsg reports the bound port and announced name.
type ServerStartedMsg struct {
	appevents.UIMessage
	Port int
	Name string
	Dir  string
}

type ClientsChangedMsg struct {
	appevents.UIMessage
	Count int
}

type TextReceivedMsg struct {
	appevents.UIMessage
	From string
	Text string
}

type FileReceivedMsg struct {
	appevents.UIMessage
	From     string
	FileName string
	Size     int64
	Path     string
}

// TransferFailedMsg reports a transfer the receiver rejected.
type TransferFailedMsg struct {
	appevents.UIMessage
	From     string
	FileName string
	Err      error
}

type StatusUpdateMsg struct {
	appevents.UIMessage
	Message string
}

var (
	_ appevents.AppEvent     = PruneHistoryEvent{}
	_ appevents.AppUIMessage = ServerStartedMsg{}
	_ appevents.AppUIMessage = FileReceivedMsg{}
)
