package transfer

import (
	"fmt"
	"net"
	"strconv"

	"github.com/rescp17/vacuumDrop/pkg/protocol"
)

// Endpoint identifies a remote peer.
type Endpoint struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (e Endpoint) IsZero() bool {
	return e.Host == "" || e.Port <= 0
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	if e.Name == "" {
		return e.Addr()
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.Addr())
}

// TextSink receives decoded text messages.
type TextSink interface {
	HandleText(text string)
}

// TextSinkFunc adapts a function to TextSink.
type TextSinkFunc func(text string)

func (f TextSinkFunc) HandleText(text string) { f(text) }

// StorageSink persists a reconstructed file and returns where it went.
type StorageSink interface {
	Save(meta protocol.Metadata, data []byte) (string, error)
}

// FileSource is the outbound file abstraction used by the sender.
type FileSource interface {
	Name() string
	Size() int64
	MimeType() string
	ReadAll() ([]byte, error)
}

// ChecksumSource is implemented by sources that already know the hex SHA-256
// of their content. The sender uses it instead of hashing again.
type ChecksumSource interface {
	Checksum() string
}

// Result describes how one file transfer ended on the receiver side.
type Result struct {
	// Meta is nil when the header itself could not be parsed.
	Meta          *protocol.Metadata
	Path          string
	BytesReceived int64
	Err           error
}

// Reporter is notified once per finished or failed file transfer.
type Reporter interface {
	TransferFinished(r Result)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(r Result)

func (f ReporterFunc) TransferFinished(r Result) { f(r) }

// Handlers bundles the collaborators a Parser hands decoded frames to.
// Reporter is optional.
type Handlers struct {
	Text     TextSink
	Storage  StorageSink
	Reporter Reporter
}
