package appevents

// AppEvent is a marker interface for events sent from the TUI to the App.
// Only types embedding Event satisfy it.
type AppEvent interface {
	isAppEvent()
}

// Event is embedded in event types to satisfy AppEvent.
type Event struct{}

func (Event) isAppEvent() {}

// AppUIMessage is a marker interface for messages sent from the App to the TUI.
type AppUIMessage interface {
	isUIMessage()
}

// UIMessage is embedded in message types to satisfy AppUIMessage.
type UIMessage struct{}

func (UIMessage) isUIMessage() {}

// UIErrorEvent reports a failure that happened inside the TUI.
type UIErrorEvent struct {
	Event
	Err error
}

// AppErrorMsg carries an App failure to the TUI.
type AppErrorMsg struct {
	UIMessage
	Err error
}

var (
	_ AppEvent     = UIErrorEvent{}
	_ AppUIMessage = AppErrorMsg{}
)
