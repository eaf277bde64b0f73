package serialmux

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/eim/internal/timeutil"
)

// DefaultMockReadings is one slow skin-conductance response as the BioEmo
// board would print it: a resting level, a rise and a recovery.
var DefaultMockReadings = []string{
	"512", "512", "511", "512", "513", "515", "519", "526", "534", "541",
	"546", "549", "550", "549", "547", "544", "540", "536", "532", "528",
	"525", "522", "520", "518", "516", "515", "514", "513", "513", "512",
}

// MockSerialPort is a SerialPorter fed by a generator goroutine. Writes are
// kept for inspection.
type MockSerialPort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer

	done chan struct{}
	once sync.Once
}

func (m *MockSerialPort) Read(p []byte) (int, error) { return m.r.Read(p) }

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.Write(p)
}

// Written returns everything written to the port so far.
func (m *MockSerialPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

func (m *MockSerialPort) Close() error {
	m.once.Do(func() {
		close(m.done)
		m.r.Close()
	})
	return nil
}

// NewMockSerialMux returns a SerialMux whose port emits lines one per tick of
// interval on clock, cycling through lines until closed.
func NewMockSerialMux(lines []string, interval time.Duration, clock timeutil.Clock) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()
	port := &MockSerialPort{r: r, w: w, done: make(chan struct{})}
	if len(lines) == 0 {
		lines = DefaultMockReadings
	}

	ticker := clock.NewTicker(interval)
	go func() {
		defer w.Close()
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-port.done:
				return
			case <-ticker.C():
				if _, err := io.WriteString(w, lines[i%len(lines)]+"\n"); err != nil {
					return
				}
			}
		}
	}()

	logf("mock serial port emitting %d fixture lines every %s", len(lines), interval)
	return NewSerialMux(port)
}
