package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/vacuumDrop/pkg/protocol"
)

type memFile struct {
	name string
	mime string
	data []byte
	err  error
}

func (f *memFile) Name() string     { return f.name }
func (f *memFile) Size() int64      { return int64(len(f.data)) }
func (f *memFile) MimeType() string { return f.mime }
func (f *memFile) ReadAll() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type lockedStorage struct {
	mu sync.Mutex
	memStorage
}

func (l *lockedStorage) Save(meta protocol.Metadata, data []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.memStorage.Save(meta, data)
}

func (l *lockedStorage) files() []savedFile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]savedFile(nil), l.saved...)
}

// startTestReceiver serves every accepted connection with its own Parser.
func startTestReceiver(t *testing.T, storage StorageSink, texts chan<- string) Endpoint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				p := NewParser(DefaultTransferConfig(), Handlers{
					Text: TextSinkFunc(func(text string) {
						if texts != nil {
							texts <- text
						}
					}),
					Storage: storage,
				}, conn, nil)
				buf := make([]byte, 4096)
				for {
					n, err := conn.Read(buf)
					if n > 0 {
						if p.Feed(buf[:n]) != nil {
							return
						}
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return Endpoint{Name: "test-receiver", Host: "127.0.0.1", Port: addr.Port}
}

func TestSender_SendText(t *testing.T) {
	texts := make(chan string, 1)
	endpoint := startTestReceiver(t, &lockedStorage{}, texts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, err := NewSender(nil, nil, nil).SendText(ctx, endpoint, "hello")
	require.NoError(t, err)
	assert.Equal(t, protocol.KindTextAck, outcome.Kind)

	select {
	case got := <-texts:
		assert.Equal(t, "hello", got)
	case <-time.After(time.Second):
		t.Fatal("receiver never observed the text message")
	}
}

func TestSender_SendTextEchoingControlLiterals(t *testing.T) {
	for _, text := range []string{"see FILE_TRANSFER_ERROR in the log", "FILE_TRANSFER_ACK"} {
		texts := make(chan string, 1)
		endpoint := startTestReceiver(t, &lockedStorage{}, texts)

		outcome, err := NewSender(nil, nil, nil).SendText(context.Background(), endpoint, text)
		require.NoError(t, err, text)
		assert.Equal(t, protocol.KindTextAck, outcome.Kind, text)
		assert.Equal(t, text, <-texts)
	}
}

func TestSender_SendFile(t *testing.T) {
	storage := &lockedStorage{}
	endpoint := startTestReceiver(t, storage, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	file := &memFile{name: "a.bin", mime: "application/octet-stream", data: testPayload(10000)}
	var progress []float64
	outcome, err := NewSender(nil, nil, nil).SendFile(ctx, endpoint, file, func(p float64) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.KindAck, outcome.Kind)

	saved := storage.files()
	require.Len(t, saved, 1)
	assert.Equal(t, "a.bin", saved[0].meta.FileName)
	assert.Equal(t, "application/octet-stream", saved[0].meta.FileType)
	assert.Equal(t, int64(10000), saved[0].meta.FileSize)
	assert.Equal(t, file.data, saved[0].data)

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 100.0, progress[len(progress)-1])
}

type checksummedFile struct {
	memFile
	sum string
}

func (f *checksummedFile) Checksum() string { return f.sum }

func TestSender_UsesChecksumCarriedBySource(t *testing.T) {
	data := []byte("contents at selection time")
	sum := sha256.Sum256(data)

	storage := &lockedStorage{}
	endpoint := startTestReceiver(t, storage, nil)
	file := &checksummedFile{memFile: memFile{name: "a.txt", data: data}, sum: hex.EncodeToString(sum[:])}

	_, err := NewSender(nil, nil, nil).SendFile(context.Background(), endpoint, file, nil)
	require.NoError(t, err)
	saved := storage.files()
	require.Len(t, saved, 1)
	assert.Equal(t, file.sum, saved[0].meta.Checksum)

	// content rewritten after selection with the same size
	stale := &checksummedFile{memFile: memFile{name: "b.txt", data: []byte("CONTENTS AT SELECTION TIME")}, sum: file.sum}
	_, err = NewSender(nil, nil, nil).SendFile(context.Background(), endpoint, stale, nil)
	assert.ErrorIs(t, err, ErrRemote)
	assert.ErrorContains(t, err, ErrChecksumMismatch.Error())
}

func TestSender_SendEmptyFile(t *testing.T) {
	storage := &lockedStorage{}
	endpoint := startTestReceiver(t, storage, nil)

	var progress []float64
	outcome, err := NewSender(nil, nil, nil).SendFile(context.Background(), endpoint,
		&memFile{name: "empty"}, func(p float64) { progress = append(progress, p) })
	require.NoError(t, err)
	assert.Equal(t, protocol.KindAck, outcome.Kind)
	assert.Equal(t, []float64{100}, progress)

	saved := storage.files()
	require.Len(t, saved, 1)
	assert.Empty(t, saved[0].data)
}

func TestSender_RemoteError(t *testing.T) {
	storage := &lockedStorage{}
	storage.err = errors.New("read-only file system")
	endpoint := startTestReceiver(t, storage, nil)

	outcome, err := NewSender(nil, nil, nil).SendFile(context.Background(), endpoint,
		&memFile{name: "a.txt", data: []byte("data")}, nil)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, remote.Reason, "read-only file system")
	assert.Equal(t, protocol.KindError, outcome.Kind)
}

func TestSender_Preconditions(t *testing.T) {
	s := NewSender(nil, nil, nil)
	ctx := context.Background()
	endpoint := Endpoint{Host: "127.0.0.1", Port: 1}

	_, err := s.SendText(ctx, Endpoint{}, "hi")
	assert.ErrorIs(t, err, ErrNoEndpointSelected)

	_, err = s.SendText(ctx, endpoint, "")
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = s.SendText(ctx, endpoint, strings.Repeat("x", DefaultMaxTextSize))
	assert.ErrorIs(t, err, ErrTextTooLong)

	_, err = s.SendFile(ctx, Endpoint{}, &memFile{name: "a"}, nil)
	assert.ErrorIs(t, err, ErrNoEndpointSelected)

	_, err = s.SendFile(ctx, endpoint, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = s.SendFile(ctx, endpoint, &memFile{name: "a", err: errors.New("permission denied")}, nil)
	assert.ErrorContains(t, err, "permission denied")
}

type countingDialer struct {
	mu    sync.Mutex
	calls int
}

func (d *countingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return nil, errors.New("connection refused")
}

func TestSender_DialRetriesThenFails(t *testing.T) {
	cfg := DefaultTransferConfig()
	cfg.RetryPolicy = &RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffFactor: 1, MaxDelay: time.Millisecond}
	dialer := &countingDialer{}

	_, err := NewSender(cfg, dialer, nil).SendText(context.Background(), Endpoint{Host: "10.0.0.1", Port: 9}, "hi")

	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 3, dialer.calls)
}

func TestSender_ConnectionClosedBeforeAck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
		_ = conn.Close()
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	_, err = NewSender(nil, nil, nil).SendFile(context.Background(), Endpoint{Host: "127.0.0.1", Port: port},
		&memFile{name: "a.txt", data: []byte("x")}, nil)
	assert.ErrorIs(t, err, ErrConnection)
}
