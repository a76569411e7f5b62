package agentwire

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jpmartel/agentwire/internal/config"
)

// QueueTransport is an in-memory Transport for tests and embedding:
// the host scripts the agent side by pushing objects that the session
// reads as incoming lines, and inspects everything the session wrote.
//
// Inject it via Options.Transport. Typical use:
//
//	qt := agentwire.NewQueueTransport()
//	qt.OnWrite = func(line []byte) {
//	    // answer control requests, echo messages, ...
//	}
//	client := agentwire.NewClient(&agentwire.Options{Transport: qt})
type QueueTransport struct {
	// OnWrite, when set, observes every line the session writes, in
	// write order. It runs on the writer's goroutine.
	OnWrite func(line []byte)

	mu         sync.Mutex
	sent       [][]byte
	connected  bool
	inputEnded bool
	closed     bool

	lines    chan map[string]any
	readErrs chan error

	finishOnce sync.Once
}

var _ config.Transport = (*QueueTransport)(nil)

// queueBuffer bounds scripted input so tests can push ahead of reads.
const queueBuffer = 64

// NewQueueTransport builds an empty queue transport.
func NewQueueTransport() *QueueTransport {
	return &QueueTransport{
		lines:    make(chan map[string]any, queueBuffer),
		readErrs: make(chan error, queueBuffer),
	}
}

// Push queues one incoming object for the session to read.
func (t *QueueTransport) Push(obj map[string]any) {
	t.lines <- obj
}

// PushError queues one read-side error, as a malformed line or a
// transport failure would.
func (t *QueueTransport) PushError(err error) {
	t.readErrs <- err
}

// Finish ends the incoming sequence, as process exit would. Safe to
// call more than once.
func (t *QueueTransport) Finish() {
	t.finishOnce.Do(func() {
		close(t.lines)
		close(t.readErrs)
	})
}

// SentLines returns a copy of every line written so far.
func (t *QueueTransport) SentLines() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([][]byte, len(t.sent))
	copy(out, t.sent)

	return out
}

// SentObjects parses every written line as a JSON object, skipping
// lines that do not parse.
func (t *QueueTransport) SentObjects() []map[string]any {
	var out []map[string]any

	for _, line := range t.SentLines() {
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err == nil {
			out = append(out, obj)
		}
	}

	return out
}

// InputEnded reports whether the session half-closed its input.
func (t *QueueTransport) InputEnded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.inputEnded
}

// Connect implements Transport.
func (t *QueueTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = true

	return nil
}

// WriteLine implements Transport: it records the line and notifies
// OnWrite.
func (t *QueueTransport) WriteLine(ctx context.Context, data []byte) error {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()

		return ErrTransportClosed
	}

	if t.inputEnded {
		t.mu.Unlock()

		return ErrInputClosed
	}

	line := make([]byte, len(data))
	copy(line, data)
	t.sent = append(t.sent, line)

	onWrite := t.OnWrite
	t.mu.Unlock()

	if onWrite != nil {
		onWrite(line)
	}

	return nil
}

// ReadLines implements Transport.
func (t *QueueTransport) ReadLines(ctx context.Context) (<-chan map[string]any, <-chan error) {
	return t.lines, t.readErrs
}

// EndInput implements Transport.
func (t *QueueTransport) EndInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inputEnded = true

	return nil
}

// Ready implements Transport.
func (t *QueueTransport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.connected && !t.closed
}

// Close implements Transport: it ends the incoming sequence and
// rejects further writes.
func (t *QueueTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.Finish()

	return nil
}
