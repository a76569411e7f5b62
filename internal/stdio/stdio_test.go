package stdio

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/errs"
)

func newCatTransport(t *testing.T) *Transport {
	t.Helper()

	// cat echoes stdin back on stdout, which makes it a loopback agent.
	transport := New(slog.Default(), &config.Options{Command: []string{"cat"}})

	require.NoError(t, transport.Connect(context.Background()))
	t.Cleanup(func() { _ = transport.Close() })

	return transport
}

func TestTransport_RoundTrip(t *testing.T) {
	transport := newCatTransport(t)

	ctx := context.Background()
	lines, readErrs := transport.ReadLines(ctx)

	require.NoError(t, transport.WriteLine(ctx, []byte(`{"type":"ping","n":1}`)))

	select {
	case obj := <-lines:
		assert.Equal(t, "ping", obj["type"])
		assert.InDelta(t, 1, obj["n"], 1e-9)
	case err := <-readErrs:
		t.Fatalf("unexpected read error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no line echoed back")
	}

	// Half-close; cat exits cleanly and both channels close.
	require.NoError(t, transport.EndInput())

	for err := range readErrs {
		require.NoError(t, err)
	}

	_, open := <-lines
	assert.False(t, open)
}

func TestTransport_MalformedLineIsPerLine(t *testing.T) {
	transport := newCatTransport(t)

	ctx := context.Background()
	lines, readErrs := transport.ReadLines(ctx)

	require.NoError(t, transport.WriteLine(ctx, []byte("not json")))
	require.NoError(t, transport.WriteLine(ctx, []byte(`{"type":"ok"}`)))

	select {
	case err := <-readErrs:
		var decodeErr *errs.JSONDecodeError
		require.True(t, stderrors.As(err, &decodeErr))
		assert.Equal(t, "not json", decodeErr.Line)
	case <-time.After(5 * time.Second):
		t.Fatal("decode error not reported")
	}

	// Reading continues past the bad line.
	select {
	case obj := <-lines:
		assert.Equal(t, "ok", obj["type"])
	case <-time.After(5 * time.Second):
		t.Fatal("valid line after malformed one not delivered")
	}
}

func TestTransport_ProcessError(t *testing.T) {
	var mu sync.Mutex

	var diagLines []string

	transport := New(slog.Default(), &config.Options{
		Command: []string{"sh", "-c", "echo oops >&2; exit 3"},
		Stderr: func(line string) {
			mu.Lock()
			diagLines = append(diagLines, line)
			mu.Unlock()
		},
	})

	require.NoError(t, transport.Connect(context.Background()))
	t.Cleanup(func() { _ = transport.Close() })

	_, readErrs := transport.ReadLines(context.Background())

	var procErr *errs.ProcessError

	deadline := time.After(5 * time.Second)

	for procErr == nil {
		select {
		case err, ok := <-readErrs:
			if !ok {
				t.Fatal("error channel closed without ProcessError")
			}

			stderrors.As(err, &procErr)
		case <-deadline:
			t.Fatal("no process error reported")
		}
	}

	assert.Equal(t, 3, procErr.ExitCode)
	assert.Contains(t, procErr.Stderr, "oops")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, diagLines, "oops")
}

func TestTransport_EmptyCommand(t *testing.T) {
	transport := New(slog.Default(), &config.Options{})

	err := transport.Connect(context.Background())
	require.Error(t, err)

	var connErr *errs.ConnError
	assert.True(t, stderrors.As(err, &connErr))
}

func TestTransport_WriteAfterEndInput(t *testing.T) {
	transport := newCatTransport(t)

	require.NoError(t, transport.EndInput())

	err := transport.WriteLine(context.Background(), []byte("{}"))
	require.ErrorIs(t, err, errs.ErrInputClosed)
}

func TestTransport_Ready(t *testing.T) {
	transport := New(slog.Default(), &config.Options{Command: []string{"cat"}})
	assert.False(t, transport.Ready())

	require.NoError(t, transport.Connect(context.Background()))
	assert.True(t, transport.Ready())

	require.NoError(t, transport.Close())
	assert.False(t, transport.Ready())

	// Close again is fine.
	require.NoError(t, transport.Close())
}

func TestTailBuffer_KeepsMostRecent(t *testing.T) {
	tail := &tailBuffer{limit: 32}

	tail.append("first line that is long enough to evict")
	tail.append("middle")
	tail.append("last")

	out := tail.String()
	assert.NotContains(t, out, "first")
	assert.Contains(t, out, "middle")
	assert.Contains(t, out, "last")
	assert.Equal(t, []string{"middle", "last"}, strings.Split(out, "\n"))
}

func TestTailBuffer_SingleOversizedLine(t *testing.T) {
	tail := &tailBuffer{limit: 4}

	tail.append("a line far beyond the limit")

	// The last line is always retained, even oversized: an empty
	// diagnostic would be worse than a long one.
	assert.Equal(t, "a line far beyond the limit", tail.String())
}
