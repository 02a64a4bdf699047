package transfer

import (
	"errors"
	"time"
)

// TransferConfig holds the tunables shared by the parser and the sender.
type TransferConfig struct {
	// ChunkSize is the size of each payload write on the sender side.
	ChunkSize int `json:"chunk_size"`

	// MaxMetadataSize bounds the declared metadata length the parser will buffer.
	MaxMetadataSize int `json:"max_metadata_size"`
	// MaxFileSize bounds the declared file size the parser will accept.
	MaxFileSize int64 `json:"max_file_size"`

	// MaxTextSize bounds an outbound text message. A text frame has no length
	// and ends with the read that completed its prefix, so it must fit in one
	// receiver read.
	MaxTextSize int `json:"max_text_size"`

	// ReadBufferSize is the size of each socket read on the receiver side.
	ReadBufferSize int `json:"read_buffer_size"`

	// IdleTimeout aborts a receive that gets no bytes for this long while a
	// frame is partly received or a file transfer is in progress.
	IdleTimeout time.Duration `json:"idle_timeout"`

	DialTimeout  time.Duration `json:"dial_timeout"`
	ReplyTimeout time.Duration `json:"reply_timeout"`

	// RetryPolicy applies to dialing only.
	RetryPolicy *RetryPolicy `json:"retry_policy"`
}

const (
	DefaultChunkSize       = 4 * 1024
	DefaultMaxMetadataSize = 64 * 1024
	DefaultMaxFileSize     = 512 * 1024 * 1024
	DefaultReadBufferSize  = 32 * 1024
	DefaultMaxTextSize     = 4 * 1024
)

// DefaultTransferConfig returns a configuration with sensible defaults
func DefaultTransferConfig() *TransferConfig {
	return &TransferConfig{
		ChunkSize:       DefaultChunkSize,
		MaxMetadataSize: DefaultMaxMetadataSize,
		MaxFileSize:     DefaultMaxFileSize,
		MaxTextSize:     DefaultMaxTextSize,
		ReadBufferSize:  DefaultReadBufferSize,
		IdleTimeout:     30 * time.Second,
		DialTimeout:     5 * time.Second,
		ReplyTimeout:    30 * time.Second,
		RetryPolicy:     DefaultRetryPolicy(),
	}
}

// Validate checks if the configuration values are valid
func (tc *TransferConfig) Validate() error {
	if tc.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if tc.MaxMetadataSize <= 0 {
		return errors.New("max_metadata_size must be positive")
	}
	if tc.MaxFileSize < 0 {
		return errors.New("max_file_size cannot be negative")
	}
	if tc.ReadBufferSize <= 0 {
		return errors.New("read_buffer_size must be positive")
	}
	if tc.MaxTextSize < 0 || tc.MaxTextSize > tc.ReadBufferSize {
		return errors.New("max_text_size must be between 0 and read_buffer_size")
	}
	if tc.IdleTimeout < 0 {
		return errors.New("idle_timeout cannot be negative")
	}
	if tc.DialTimeout <= 0 {
		return errors.New("dial_timeout must be positive")
	}
	if tc.ReplyTimeout <= 0 {
		return errors.New("reply_timeout must be positive")
	}
	if tc.RetryPolicy == nil {
		return errors.New("retry_policy cannot be nil")
	}
	if tc.RetryPolicy.MaxRetries < 0 {
		return errors.New("retry_policy.max_retries cannot be negative")
	}
	return nil
}
