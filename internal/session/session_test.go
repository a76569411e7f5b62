package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/errs"
	"github.com/jpmartel/agentwire/internal/wire"
)

// scriptedTransport answers control traffic like a live agent process:
// every control request gets an immediate success response, and the
// test pushes output messages explicitly.
type scriptedTransport struct {
	mu    sync.Mutex
	lines [][]byte

	incoming chan map[string]any
	readErrs chan error

	finishOnce sync.Once
}

var _ config.Transport = (*scriptedTransport)(nil)

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		incoming: make(chan map[string]any, 32),
		readErrs: make(chan error, 4),
	}
}

func (s *scriptedTransport) Connect(_ context.Context) error { return nil }

func (s *scriptedTransport) WriteLine(_ context.Context, data []byte) error {
	s.mu.Lock()
	line := make([]byte, len(data))
	copy(line, data)
	s.lines = append(s.lines, line)
	s.mu.Unlock()

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	if obj["type"] == "control_request" {
		s.incoming <- map[string]any{
			"type": "control_response",
			"response": map[string]any{
				"subtype":    "success",
				"request_id": obj["request_id"],
				"response":   map[string]any{"commands": []any{}},
			},
		}
	}

	return nil
}

func (s *scriptedTransport) ReadLines(_ context.Context) (<-chan map[string]any, <-chan error) {
	return s.incoming, s.readErrs
}

func (s *scriptedTransport) EndInput() error { return nil }

func (s *scriptedTransport) Close() error {
	s.finishOnce.Do(func() {
		close(s.incoming)
		close(s.readErrs)
	})

	return nil
}

func (s *scriptedTransport) Ready() bool { return true }

func (s *scriptedTransport) push(obj map[string]any) {
	s.incoming <- obj
}

func (s *scriptedTransport) written() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.lines))

	for _, line := range s.lines {
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err == nil {
			out = append(out, obj)
		}
	}

	return out
}

func newConnectedSession(t *testing.T, opts *config.Options) (*Session, *scriptedTransport) {
	t.Helper()

	if opts == nil {
		opts = &config.Options{}
	}

	transport := newScriptedTransport()
	session := New(opts, transport)

	require.NoError(t, session.Connect(context.Background()))
	t.Cleanup(func() { _ = session.Close() })

	return session, transport
}

func TestSession_Connect_RunsHandshake(t *testing.T) {
	session, transport := newConnectedSession(t, nil)

	assert.NotNil(t, session.ServerInfo())

	writes := transport.written()
	require.NotEmpty(t, writes)

	body := writes[0]["request"].(map[string]any)
	assert.Equal(t, "initialize", body["subtype"])
}

func TestSession_Connect_AppliesPermissionMode(t *testing.T) {
	_, transport := newConnectedSession(t, &config.Options{PermissionMode: "acceptAll"})

	var modes []any

	for _, obj := range transport.written() {
		body, _ := obj["request"].(map[string]any)
		if body != nil && body["subtype"] == "set_permission_mode" {
			modes = append(modes, body["mode"])
		}
	}

	require.Len(t, modes, 1)
	assert.Equal(t, "bypassPermissions", modes[0])
}

func TestSession_Connect_Twice(t *testing.T) {
	session, _ := newConnectedSession(t, nil)

	err := session.Connect(context.Background())
	require.ErrorIs(t, err, errs.ErrAlreadyConnected)
}

func TestSession_Send_WritesUserEnvelope(t *testing.T) {
	session, transport := newConnectedSession(t, nil)

	require.NoError(t, session.Send(context.Background(), "what is 2+2?", ""))

	var userTurn map[string]any

	for _, obj := range transport.written() {
		if obj["type"] == "user" {
			userTurn = obj
		}
	}

	require.NotNil(t, userTurn)
	assert.Equal(t, "default", userTurn["session_id"])
	assert.Nil(t, userTurn["parent_tool_use_id"])

	inner := userTurn["message"].(map[string]any)
	assert.Equal(t, "user", inner["role"])
	assert.Equal(t, "what is 2+2?", inner["content"])
}

func TestSession_Send_ExplicitSessionID(t *testing.T) {
	session, transport := newConnectedSession(t, nil)

	id := NewSessionID()
	require.NoError(t, session.Send(context.Background(), "hi", id))

	var got any

	for _, obj := range transport.written() {
		if obj["type"] == "user" {
			got = obj["session_id"]
		}
	}

	assert.Equal(t, id, got)
}

func TestSession_Responses_StopsAtResult(t *testing.T) {
	session, transport := newConnectedSession(t, nil)

	transport.push(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"model":   "m",
			"content": []any{map[string]any{"type": "text", "text": "4"}},
		},
	})
	transport.push(map[string]any{
		"type":            "result",
		"subtype":         "success",
		"duration_ms":     float64(10),
		"duration_api_ms": float64(8),
		"is_error":        false,
		"num_turns":       float64(1),
		"session_id":      "default",
	})
	// Anything after the result belongs to the next turn.
	transport.push(map[string]any{
		"type":       "system",
		"subtype":    "status",
		"session_id": "default",
	})

	var kinds []string

	for msg, err := range session.Responses(context.Background()) {
		require.NoError(t, err)

		kinds = append(kinds, msg.Kind())
	}

	assert.Equal(t, []string{wire.KindAssistant, wire.KindResult}, kinds)
}

func TestSession_Responses_YieldsDecodeErrorsInline(t *testing.T) {
	session, transport := newConnectedSession(t, nil)

	transport.readErrs <- &errs.JSONDecodeError{Line: "garbage", Err: stderrors.New("bad")}
	transport.push(map[string]any{
		"type":            "result",
		"subtype":         "success",
		"duration_ms":     float64(1),
		"duration_api_ms": float64(1),
		"is_error":        false,
		"num_turns":       float64(1),
		"session_id":      "default",
	})

	var sawDecodeError, sawResult bool

	for msg, err := range session.Responses(context.Background()) {
		if err != nil {
			var decodeErr *errs.JSONDecodeError
			require.True(t, stderrors.As(err, &decodeErr))

			sawDecodeError = true

			continue
		}

		if _, ok := msg.(*wire.ResultMessage); ok {
			sawResult = true
		}
	}

	assert.True(t, sawDecodeError)
	assert.True(t, sawResult)
}

func TestSession_Messages_EndsWhenConnectionEnds(t *testing.T) {
	session, transport := newConnectedSession(t, nil)

	transport.push(map[string]any{
		"type":       "system",
		"subtype":    "status",
		"session_id": "default",
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		transport.Close()
	}()

	count := 0

	for _, err := range session.Messages(context.Background()) {
		require.NoError(t, err)

		count++
	}

	assert.Equal(t, 1, count)
}

func TestSession_Messages_ContextCancel(t *testing.T) {
	session, _ := newConnectedSession(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var lastErr error

	for _, err := range session.Messages(ctx) {
		lastErr = err
	}

	require.ErrorIs(t, lastErr, context.Canceled)
}

func TestSession_ControlOperations(t *testing.T) {
	session, transport := newConnectedSession(t, nil)

	ctx := context.Background()

	require.NoError(t, session.Interrupt(ctx))
	require.NoError(t, session.SetPermissionMode(ctx, "plan"))

	model := "bigger-model"
	require.NoError(t, session.SetModel(ctx, &model))
	require.NoError(t, session.SetModel(ctx, nil))

	require.NoError(t, session.RewindFiles(ctx, "msg-7"))

	var subtypes []string

	for _, obj := range transport.written() {
		if body, ok := obj["request"].(map[string]any); ok {
			subtypes = append(subtypes, body["subtype"].(string))
		}
	}

	assert.Equal(t, []string{
		"initialize", "interrupt", "set_permission_mode",
		"set_model", "set_model", "rewind_files",
	}, subtypes)
}

func TestSession_Close_IsIdempotentAndFinal(t *testing.T) {
	session, _ := newConnectedSession(t, nil)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	err := session.Connect(context.Background())
	require.ErrorIs(t, err, errs.ErrSessionClosed)
}
