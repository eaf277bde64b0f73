package serialmux

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSerialPort replays fixed input and then reports EOF.
type TestSerialPort struct {
	mu       sync.Mutex
	r        io.Reader
	written  bytes.Buffer
	writeErr error
	closed   bool
}

func NewTestSerialPort(data string) *TestSerialPort {
	return &TestSerialPort{r: strings.NewReader(data)}
}

func (p *TestSerialPort) Read(buf []byte) (int, error) { return p.r.Read(buf) }

func (p *TestSerialPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(data)
}

func (p *TestSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *TestSerialPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func TestMonitorBroadcastsLines(t *testing.T) {
	mux := NewSerialMux(NewTestSerialPort("512\r\n513\n600\n"))
	_, a := mux.Subscribe()
	_, b := mux.Subscribe()

	require.NoError(t, mux.Monitor(context.Background()))

	for _, ch := range []chan string{a, b} {
		var got []string
		for i := 0; i < 3; i++ {
			got = append(got, <-ch)
		}
		assert.Equal(t, []string{"512", "513", "600"}, got)
	}
}

func TestMonitorStopsOnCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	mux := NewSerialMux(&MockSerialPort{r: r, w: w, done: make(chan struct{})})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok, "unsubscribed channel should be closed")
	mux.Unsubscribe(id) // second call is a no-op

	_, other := mux.Subscribe()
	require.NoError(t, mux.Close())
	_, ok = <-other
	assert.False(t, ok, "Close should close subscriber channels")
	assert.True(t, port.closed)

	_, late := mux.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing after Close yields a closed channel")

	require.NoError(t, mux.Close())
}

func TestSendCommand(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)

	require.NoError(t, mux.SendCommand("R"))
	require.NoError(t, mux.SendCommand("S\n"))
	assert.Equal(t, "R\nS\n", port.Written())

	port.writeErr = errors.New("unplugged")
	assert.Error(t, mux.SendCommand("R"))
}

func TestTailHandler(t *testing.T) {
	mux := NewSerialMux(NewTestSerialPort(""))
	srv := httptest.NewServer(tailHandler(mux))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	ping, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", ping)
	_, _ = br.ReadString('\n')

	mux.broadcast("777")
	data, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: 777\n", data)
}

func TestTailHandlerRejectsPost(t *testing.T) {
	mux := NewSerialMux(NewTestSerialPort(""))
	w := httptest.NewRecorder()
	tailHandler(mux)(w, httptest.NewRequest(http.MethodPost, "/debug/tail", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAdminSendCommand(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	req := httptest.NewRequest(http.MethodPost, "/debug/send-command", strings.NewReader("command=R"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "127.0.0.1:1234"
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "R\n", port.Written())
}
