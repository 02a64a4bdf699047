package transfer

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the parser, the sender and the session manager.
var (
	// ErrConnection covers connect, bind, read and write failures.
	ErrConnection = errors.New("connection error")

	// ErrMalformedMetadata is reported when the header's JSON block cannot be parsed.
	ErrMalformedMetadata = errors.New("malformed metadata")

	// ErrStorageWrite is reported when the storage sink rejects a payload.
	ErrStorageWrite = errors.New("storage write failure")

	ErrNoEndpointSelected = errors.New("no endpoint selected")
	ErrEmptyPayload       = errors.New("empty payload")
	// ErrTextTooLong rejects a text message that may not arrive in one read.
	ErrTextTooLong        = errors.New("text message too long")

	// ErrPortInUse is a bind conflict; the session manager moves to the next port.
	ErrPortInUse = errors.New("port in use")
	// ErrPortsExhausted is returned once every candidate port was in use.
	ErrPortsExhausted = errors.New("no free port within retry limit")

	// ErrProtocol is a framing violation, e.g. payload longer than declared.
	ErrProtocol = errors.New("protocol error")
	// ErrMalformedPayload is reported when the payload is not valid base64 or
	// decodes to a size other than the declared one.
	ErrMalformedPayload = errors.New("malformed payload")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrFileTooLarge     = errors.New("file too large")

	// ErrRemote is wrapped by RemoteError.
	ErrRemote = errors.New("remote error")
)

// RemoteError carries the reason of an error frame written by the peer.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	if e.Reason == "" {
		return "receiver reported an error"
	}
	return fmt.Sprintf("receiver reported an error: %s", e.Reason)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemote
}
