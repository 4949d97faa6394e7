package modem

import (
	"context"
	"io"
	"strings"
	"sync"
)

// TestTransport is a test helper that simulates a modem answering commands.
// Reads never wait: they return whatever is pending, or 0 when nothing is,
// matching a serial port opened with a short read timeout.
//
// Replies are scripted with Reply: whenever a write starts with the given
// prefix, the response is queued for reading. Rules registered later take
// precedence, so tests can install a catch-all first and override it.
type TestTransport struct {
	mu      sync.Mutex
	pending []byte
	writes  []string
	rules   []reply
	closed  bool

	// ReadErr, when set, is returned by every Read.
	ReadErr error
	// WriteErr, when set, is returned by every Write.
	WriteErr error
}

type reply struct {
	prefix   string
	response string
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{}
}

// Reply queues response whenever a write starts with prefix.
func (t *TestTransport) Reply(prefix, response string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, reply{prefix: prefix, response: response})
	return t
}

// Inject queues unsolicited data, as if the modem had sent it on its own.
func (t *TestTransport) Inject(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, data...)
}

func (t *TestTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	if t.ReadErr != nil {
		return 0, t.ReadErr
	}
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	if t.WriteErr != nil {
		return 0, t.WriteErr
	}
	w := string(p)
	t.writes = append(t.writes, w)
	for i := len(t.rules) - 1; i >= 0; i-- {
		if strings.HasPrefix(w, t.rules[i].prefix) {
			t.pending = append(t.pending, t.rules[i].response...)
			break
		}
	}
	return len(p), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Writes returns every write, in order, exactly as received.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// Commands returns the AT commands written so far, without terminators.
func (t *TestTransport) Commands() []string {
	var cmds []string
	for _, w := range t.Writes() {
		if strings.HasPrefix(w, "AT") {
			cmds = append(cmds, strings.TrimSuffix(w, "\r\n"))
		}
	}
	return cmds
}

// Pending reports how many bytes are waiting to be read.
func (t *TestTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// TestDialer hands out a prepared Transport.
type TestDialer struct {
	Transport Transport
}

func (d TestDialer) Dial(ctx context.Context) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Transport, nil
}
