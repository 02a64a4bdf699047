package receiver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rescp17/vacuumDrop/internal/app_events/receiver"
	"github.com/rescp17/vacuumDrop/pkg/history"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

const historyWriteTimeout = 5 * time.Second

// FileReceiver is the per-connection bridge between the transfer parser and
// the rest of the receiver: UI messages, the history log and counters.
type FileReceiver struct {
	peer    string
	storage transfer.StorageSink
	history *history.Store
	emit    func(tea.Msg)
	log     *slog.Logger

	mu             sync.Mutex
	completedFiles int
	failedFiles    int
	receivedBytes  int64
	texts          int
}

// NewFileReceiver creates a receiver for the connection from peer. emit
// and store may be nil.
func NewFileReceiver(peer string, storage transfer.StorageSink, store *history.Store, emit func(tea.Msg), logger *slog.Logger) *FileReceiver {
	if emit == nil {
		emit = func(tea.Msg) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileReceiver{
		peer:    peer,
		storage: storage,
		history: store,
		emit:    emit,
		log:     logger,
	}
}

// Handlers wires the receiver into a transfer parser.
func (fr *FileReceiver) Handlers() transfer.Handlers {
	return transfer.Handlers{Text: fr, Storage: fr.storage, Reporter: fr}
}

func (fr *FileReceiver) HandleText(text string) {
	fr.mu.Lock()
	fr.texts++
	fr.mu.Unlock()

	fr.emit(receiver.TextReceivedMsg{From: fr.peer, Text: text})
	fr.record(func(ctx context.Context) error {
		return fr.history.RecordText(ctx, history.TextRecord{Peer: fr.peer, Text: text})
	})
}

func (fr *FileReceiver) TransferFinished(r transfer.Result) {
	rec := history.FileRecord{Peer: fr.peer, Path: r.Path, Err: r.Err}
	if r.Meta != nil {
		rec.FileName = r.Meta.FileName
		rec.FileSize = r.Meta.FileSize
		rec.FileType = r.Meta.FileType
		rec.Checksum = r.Meta.Checksum
	}

	fr.mu.Lock()
	if r.Err != nil {
		fr.failedFiles++
	} else {
		fr.completedFiles++
		fr.receivedBytes += rec.FileSize
	}
	fr.mu.Unlock()

	if r.Err != nil {
		fr.emit(receiver.TransferFailedMsg{From: fr.peer, FileName: rec.FileName, Err: r.Err})
	} else {
		fr.emit(receiver.FileReceivedMsg{From: fr.peer, FileName: rec.FileName, Size: rec.FileSize, Path: r.Path})
	}
	fr.record(func(ctx context.Context) error {
		return fr.history.RecordFile(ctx, rec)
	})
}

func (fr *FileReceiver) record(write func(ctx context.Context) error) {
	if !fr.history.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		fr.log.Warn("Failed to record history", "peer", fr.peer, "error", err)
	}
}

// Stats reports what this connection delivered so far.
func (fr *FileReceiver) Stats() (completed, failed int, bytes int64) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.completedFiles, fr.failedFiles, fr.receivedBytes
}
