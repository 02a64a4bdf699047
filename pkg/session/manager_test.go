package session

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/vacuumDrop/pkg/protocol"
	"github.com/rescp17/vacuumDrop/pkg/transfer"
)

type fakeAnnouncer struct {
	mu        sync.Mutex
	names     []string
	ports     []int
	withdrawn int
}

func (f *fakeAnnouncer) Announce(name string, port int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.ports = append(f.ports, port)
	return nil
}

func (f *fakeAnnouncer) Withdraw() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdrawn++
}

type recorder struct {
	mu    sync.Mutex
	texts []string
	files map[string][]byte
}

func newRecorder() *recorder {
	return &recorder{files: make(map[string][]byte)}
}

func (r *recorder) HandleText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recorder) Save(meta protocol.Metadata, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[meta.FileName] = append([]byte(nil), data...)
	return "/tmp/" + meta.FileName, nil
}

func (r *recorder) file(name string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.files[name]
	return data, ok
}

type memFile struct {
	name string
	data []byte
}

func (f *memFile) Name() string             { return f.name }
func (f *memFile) Size() int64              { return int64(len(f.data)) }
func (f *memFile) MimeType() string         { return "application/octet-stream" }
func (f *memFile) ReadAll() ([]byte, error) { return f.data, nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.PreferredPort = 0
	return cfg
}

func startManager(t *testing.T, cfg Config, rec *recorder, announcer Announcer) *Manager {
	t.Helper()
	m := NewManager(cfg, StaticHandlers(transfer.Handlers{Text: rec, Storage: rec}), announcer, nil)
	_, err := m.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(m.Stop)
	return m
}

func endpointOf(m *Manager) transfer.Endpoint {
	return transfer.Endpoint{Host: "127.0.0.1", Port: m.Port()}
}

func TestCandidatePort(t *testing.T) {
	tests := []struct {
		base, attempt, want int
	}{
		{1234, 0, 1234},
		{1234, 1, 1235},
		{1234, 19, 1253},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CandidatePort(tt.base, tt.attempt))
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.PreferredPort = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxPortAttempts = -1
	assert.Error(t, cfg.Validate())
}

func TestManager_StartRetriesNextPort(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	preferred := occupied.Addr().(*net.TCPAddr).Port

	cfg := testConfig()
	cfg.PreferredPort = preferred
	announcer := &fakeAnnouncer{}
	m := startManager(t, cfg, newRecorder(), announcer)

	assert.NotEqual(t, preferred, m.Port())
	assert.Greater(t, m.Port(), preferred)
	assert.LessOrEqual(t, m.Port(), preferred+cfg.MaxPortAttempts-1)

	announcer.mu.Lock()
	defer announcer.mu.Unlock()
	require.Len(t, announcer.ports, 1)
	assert.Equal(t, m.Port(), announcer.ports[0])
	assert.Equal(t, m.ServiceName(), announcer.names[0])
}

func TestManager_PortsExhausted(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := testConfig()
	cfg.PreferredPort = occupied.Addr().(*net.TCPAddr).Port
	cfg.MaxPortAttempts = 1
	m := NewManager(cfg, StaticHandlers(transfer.Handlers{}), nil, nil)

	_, err = m.Start(context.Background())
	assert.ErrorIs(t, err, transfer.ErrPortsExhausted)
	assert.ErrorIs(t, err, transfer.ErrPortInUse)

	m.Stop()
	m.Stop()
}

func TestManager_StartTwice(t *testing.T) {
	m := startManager(t, testConfig(), newRecorder(), nil)
	_, err := m.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestManager_TextEndToEnd(t *testing.T) {
	rec := newRecorder()
	m := startManager(t, testConfig(), rec, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := transfer.NewSender(nil, nil, nil).SendText(ctx, endpointOf(m), "hello")
	require.NoError(t, err)
	assert.Equal(t, protocol.KindTextAck, outcome.Kind)
	assert.Equal(t, "TEXT_MESSAGE_ACK: hello", outcome.Message)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"hello"}, rec.texts)
}

func TestManager_FileEndToEnd(t *testing.T) {
	rec := newRecorder()
	m := startManager(t, testConfig(), rec, nil)

	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := transfer.NewSender(nil, nil, nil).SendFile(ctx, endpointOf(m), &memFile{name: "a.bin", data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindAck, outcome.Kind)

	got, ok := rec.file("a.bin")
	require.True(t, ok)
	assert.Equal(t, data, got)
}

func TestManager_TracksConnections(t *testing.T) {
	var (
		mu     sync.Mutex
		counts []int
	)
	rec := newRecorder()
	handlers := StaticHandlers(transfer.Handlers{Text: rec, Storage: rec})
	handlers.ConnectionsChanged = func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}
	m := NewManager(testConfig(), handlers, nil, nil)
	_, err := m.Start(context.Background())
	require.NoError(t, err)
	defer m.Stop()

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(m.Port())))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return m.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return m.ActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, counts)
}

func TestManager_IdleTimeoutClosesStalledTransfer(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 100 * time.Millisecond
	m := startManager(t, cfg, newRecorder(), nil)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(m.Port())))
	require.NoError(t, err)
	defer conn.Close()

	header, err := protocol.EncodeFileHeader(protocol.Metadata{FileName: "stall.bin", FileSize: 100, FileType: "text/plain"})
	require.NoError(t, err)
	_, err = conn.Write(header)
	require.NoError(t, err)
	_, err = conn.Write([]byte("QUJD"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	assert.Zero(t, n)
	assert.Error(t, err, "the receiver closes a stalled transfer")
	assert.Eventually(t, func() bool { return m.ActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_IdleTimeoutClosesHalfReceivedHeader(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 100 * time.Millisecond
	m := startManager(t, cfg, newRecorder(), nil)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(m.Port())))
	require.NoError(t, err)
	defer conn.Close()

	// declares 200 metadata bytes and then stops sending
	_, err = conn.Write([]byte(protocol.FileHeaderPrefix + `200:{"fileName":"a.bin"`))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	assert.Zero(t, n)
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return m.ActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_OvershootingMetadataLengthGetsErrorReply(t *testing.T) {
	rec := newRecorder()
	m := startManager(t, testConfig(), rec, nil)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(m.Port())))
	require.NoError(t, err)
	defer conn.Close()

	block, err := protocol.MarshalMetadata(protocol.Metadata{FileName: "empty.bin"})
	require.NoError(t, err)
	frame := protocol.FileHeaderPrefix + strconv.Itoa(len(block)+40) + ":" + string(block) + protocol.Terminator
	_, err = conn.Write([]byte(frame))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindError, protocol.Classify(buf[:n]))
	_, saved := rec.file("empty.bin")
	assert.False(t, saved)
}

func TestManager_IdleConnectionWithoutTransferStaysOpen(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	m := startManager(t, cfg, newRecorder(), nil)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(m.Port())))
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, m.ActiveConnections())
}

func TestManager_StopIsIdempotent(t *testing.T) {
	announcer := &fakeAnnouncer{}
	m := NewManager(testConfig(), StaticHandlers(transfer.Handlers{}), announcer, nil)
	_, err := m.Start(context.Background())
	require.NoError(t, err)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(m.Port())))
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return m.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.Stop()
	m.Stop()

	assert.Equal(t, 0, m.ActiveConnections())
	announcer.mu.Lock()
	assert.Equal(t, 1, announcer.withdrawn)
	announcer.mu.Unlock()

	_, err = m.Start(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestManager_StopsWhenContextCancelled(t *testing.T) {
	m := NewManager(testConfig(), StaticHandlers(transfer.Handlers{}), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	addr, err := m.Start(ctx)
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr.String(), 100*time.Millisecond)
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
	m.Stop()
}
