package control

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/errs"
	"github.com/jpmartel/agentwire/internal/wire"
)

// State is the engine's connection lifecycle position. Ready is the
// only state in which both directions of traffic are permitted.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Output is one item of the consumer-visible agent-output sequence:
// either a decoded message or the decode failure for one line. Shape
// failures ride the same channel as messages so arrival order is
// preserved either way.
type Output struct {
	Msg wire.Message
	Err error
}

// callOutcome resolves one pending outbound request, exactly once.
type callOutcome struct {
	resp *Response
	err  error
}

// pendingCall tracks an outbound control request awaiting its response.
type pendingCall struct {
	subtype string
	done    chan callOutcome // buffered(1), receives exactly one outcome
}

// inflightReq tracks an inbound control request whose handler is still
// running, so the remote side can cancel it.
type inflightReq struct {
	subtype   string
	cancel    context.CancelFunc
	completed bool
}

// Engine owns the transport and multiplexes the two logical channels
// carried on it. Construct with NewEngine, then Connect; the engine is
// single-use.
type Engine struct {
	log       *slog.Logger
	transport config.Transport

	state atomic.Int32

	// Single-writer discipline: all envelope writes go through writeMu
	// so concurrent responses never interleave mid-line.
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]*pendingCall

	inflightMu sync.Mutex
	inflight   map[string]*inflightReq

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	output chan Output

	errMu    sync.RWMutex
	fatalErr error

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// outputBuffer sizes the consumer-facing channel so early messages
// don't stall the read loop during the initialize handshake.
const outputBuffer = 64

// NewEngine creates an engine over the transport. The transport is
// owned by the engine from here on: Close tears it down.
func NewEngine(log *slog.Logger, transport config.Transport) *Engine {
	return &Engine{
		log:       log.With("component", "engine"),
		transport: transport,
		pending:   make(map[string]*pendingCall, 8),
		inflight:  make(map[string]*inflightReq, 8),
		handlers:  make(map[string]Handler, 8),
		output:    make(chan Output, outputBuffer),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Connect establishes the transport and starts the background read
// loop, moving Disconnected -> Connecting -> Ready.
func (e *Engine) Connect(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		if e.State() == StateReady {
			return errs.ErrAlreadyConnected
		}

		return errs.ErrSessionClosed
	}

	e.log.Debug("Connecting transport")

	if err := e.transport.Connect(ctx); err != nil {
		e.state.Store(int32(StateClosed))

		return &errs.ConnError{Err: err}
	}

	lines, lineErrs := e.transport.ReadLines(ctx)

	e.wg.Add(1)

	go e.readLoop(ctx, lines, lineErrs)

	e.state.Store(int32(StateReady))
	e.log.Info("Engine ready")

	return nil
}

// Output returns the consumer-visible agent-output sequence. The
// channel closes when the engine stops; use Err to learn why.
func (e *Engine) Output() <-chan Output {
	return e.output
}

// Done is closed when the engine stops for any reason.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns the fatal error that stopped the engine, if any.
func (e *Engine) Err() error {
	e.errMu.RLock()
	defer e.errMu.RUnlock()

	return e.fatalErr
}

// setFatal records the first fatal error and signals shutdown.
func (e *Engine) setFatal(err error) {
	e.errMu.Lock()

	if e.fatalErr == nil {
		e.fatalErr = err
	}

	e.errMu.Unlock()

	e.signalDone()
}

func (e *Engine) signalDone() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}

// RegisterHandler installs the handler for an inbound control request
// subtype. One handler per subtype; later registrations replace
// earlier ones.
func (e *Engine) RegisterHandler(subtype string, h Handler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()

	e.handlers[subtype] = h
}

// Close tears the engine down: Closing -> Closed. All outstanding
// calls resolve with a connection-closed failure, in-flight inbound
// handlers are cancelled, the read loop is joined, and the transport
// is closed. Safe to call more than once.
func (e *Engine) Close() error {
	prev := State(e.state.Swap(int32(StateClosing)))
	if prev == StateClosing || prev == StateClosed {
		e.state.Store(int32(StateClosed))

		return nil
	}

	e.log.Debug("Closing engine")

	e.signalDone()
	e.failPending(errs.ErrConnClosed)
	e.cancelInflight()

	closeErr := e.transport.Close()

	e.wg.Wait()
	e.state.Store(int32(StateClosed))
	e.log.Info("Engine closed")

	return closeErr
}

// Call sends one outbound control request and waits for the correlated
// response. A positive timeout bounds the wait; zero or negative waits
// until the context is cancelled or the connection dies. Exactly one
// resolution happens per call: success, error response, timeout,
// cancellation, or connection teardown.
func (e *Engine) Call(
	ctx context.Context,
	subtype string,
	payload map[string]any,
	timeout time.Duration,
) (*Response, error) {
	if e.State() != StateReady {
		return nil, errs.ErrNotConnected
	}

	requestID := ulid.Make().String()

	call := &pendingCall{
		subtype: subtype,
		done:    make(chan callOutcome, 1),
	}

	e.pendingMu.Lock()
	e.pending[requestID] = call
	e.pendingMu.Unlock()

	body := map[string]any{"subtype": subtype}
	maps.Copy(body, payload)

	req := &Request{
		Type:      "control_request",
		RequestID: requestID,
		Body:      body,
	}

	e.log.Debug("Sending control request", "request_id", requestID, "subtype", subtype)

	if err := e.writeEnvelope(ctx, req); err != nil {
		e.resolve(requestID, callOutcome{err: err})
		<-call.done

		return nil, fmt.Errorf("send control request: %w", err)
	}

	var timer <-chan time.Time

	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()

		timer = t.C
	}

	select {
	case outcome := <-call.done:
		if outcome.err != nil {
			return nil, outcome.err
		}

		if outcome.resp.IsError() {
			return nil, fmt.Errorf("%s request failed: %s", subtype, outcome.resp.ErrorMessage())
		}

		return outcome.resp, nil

	case <-e.done:
		e.resolve(requestID, callOutcome{err: errs.ErrConnClosed})
		outcome := <-call.done

		if outcome.err != nil && !stderrors.Is(outcome.err, errs.ErrConnClosed) {
			return nil, outcome.err
		}

		if fatal := e.Err(); fatal != nil {
			return nil, fmt.Errorf("connection failed during %s request: %w", subtype, fatal)
		}

		return nil, errs.ErrEngineStopped

	case <-timer:
		e.resolve(requestID, callOutcome{err: errs.ErrRequestTimeout})
		<-call.done

		e.log.Warn("Control request timed out",
			"request_id", requestID, "subtype", subtype, "timeout", timeout)

		return nil, fmt.Errorf("%w after %s (%s)", errs.ErrRequestTimeout, timeout, subtype)

	case <-ctx.Done():
		e.resolve(requestID, callOutcome{err: ctx.Err()})
		<-call.done

		return nil, ctx.Err()
	}
}

// resolve claims the pending entry for requestID and delivers the
// outcome. The claim-by-delete under pendingMu guarantees at most one
// resolution per id; a second resolve for the same id is a no-op.
func (e *Engine) resolve(requestID string, outcome callOutcome) bool {
	e.pendingMu.Lock()

	call, ok := e.pending[requestID]
	if ok {
		delete(e.pending, requestID)
	}

	e.pendingMu.Unlock()

	if !ok {
		return false
	}

	call.done <- outcome

	return true
}

// failPending resolves every outstanding call with the given reason.
func (e *Engine) failPending(reason error) {
	e.pendingMu.Lock()
	outstanding := e.pending
	e.pending = make(map[string]*pendingCall)
	e.pendingMu.Unlock()

	for id, call := range outstanding {
		e.log.Debug("Failing pending request on teardown", "request_id", id, "subtype", call.subtype)
		call.done <- callOutcome{err: reason}
	}
}

// cancelInflight cancels every inbound handler still running.
func (e *Engine) cancelInflight() {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()

	for _, op := range e.inflight {
		if !op.completed {
			op.cancel()
		}
	}
}

// readLoop is the single background consumer of the transport's read
// sequence.
func (e *Engine) readLoop(
	ctx context.Context,
	lines <-chan map[string]any,
	lineErrs <-chan error,
) {
	defer e.wg.Done()
	defer close(e.output)
	defer e.log.Debug("Read loop stopped")

	// Whatever ends the loop, nothing pending can resolve after it.
	defer func() {
		reason := e.Err()
		if reason == nil {
			reason = errs.ErrConnClosed
		}

		e.failPending(reason)
		e.signalDone()
	}()

	for {
		select {
		case raw, ok := <-lines:
			if !ok {
				e.log.Debug("Transport read sequence ended")

				return
			}

			e.route(ctx, raw)

		case err, ok := <-lineErrs:
			if !ok {
				return
			}

			if err == nil {
				continue
			}

			// A malformed line is fatal to that line only; anything
			// else kills the connection.
			var decodeErr *errs.JSONDecodeError
			if stderrors.As(err, &decodeErr) {
				e.log.Warn("Skipping malformed transport line", "error", err)
				e.forward(ctx, Output{Err: err})

				continue
			}

			e.log.Debug("Fatal transport error", "error", err)
			e.setFatal(err)

			return

		case <-e.done:
			return

		case <-ctx.Done():
			return
		}
	}
}

// route classifies one incoming object: control response, control
// request, remote cancellation, or agent output.
func (e *Engine) route(ctx context.Context, raw map[string]any) {
	kind, _ := raw["type"].(string)

	switch kind {
	case "control_response":
		e.routeResponse(raw)

	case "control_request":
		e.routeRequest(ctx, raw)

	case "control_cancel_request":
		e.routeCancel(ctx, raw)

	default:
		msg, err := wire.Decode(raw)
		if err != nil {
			// Shape errors are surfaced, never fatal to the loop.
			e.forward(ctx, Output{Err: err})

			return
		}

		e.forward(ctx, Output{Msg: msg})
	}
}

// forward delivers one output item, preserving arrival order.
func (e *Engine) forward(ctx context.Context, out Output) {
	select {
	case e.output <- out:
	case <-e.done:
	case <-ctx.Done():
	}
}

// routeResponse resolves the pending call the response correlates to.
// A response with no matching entry is stale or duplicated: warn and
// drop, never crash.
func (e *Engine) routeResponse(raw map[string]any) {
	body, ok := raw["response"].(map[string]any)
	if !ok {
		e.log.Warn("Control response missing 'response' body")

		return
	}

	resp := &Response{Type: "control_response", Body: body}

	requestID := resp.RequestID()
	if requestID == "" {
		e.log.Warn("Control response missing request_id")

		return
	}

	if !e.resolve(requestID, callOutcome{resp: resp}) {
		e.log.Warn("Stale control response, no pending request", "request_id", requestID)

		return
	}

	e.log.Debug("Resolved control response", "request_id", requestID)
}

// routeRequest dispatches an inbound control request to its handler on
// a separate goroutine so slow callbacks never stall the read loop.
func (e *Engine) routeRequest(ctx context.Context, raw map[string]any) {
	requestID, ok := raw["request_id"].(string)
	if !ok {
		e.log.Warn("Control request missing request_id")

		return
	}

	body, ok := raw["request"].(map[string]any)
	if !ok {
		e.log.Warn("Control request missing 'request' body", "request_id", requestID)
		e.respondError(ctx, requestID, "malformed control request: missing request body")

		return
	}

	req := &Request{Type: "control_request", RequestID: requestID, Body: body}
	subtype := req.Subtype()

	e.log.Debug("Inbound control request", "request_id", requestID, "subtype", subtype)

	e.handlersMu.RLock()
	handler, ok := e.handlers[subtype]
	e.handlersMu.RUnlock()

	if !ok {
		// The remote side evolves independently; answer, don't die.
		e.log.Warn("Unsupported control request subtype", "subtype", subtype)
		e.respondError(ctx, requestID, fmt.Sprintf("unsupported control request subtype: %s", subtype))

		return
	}

	opCtx, cancel := context.WithCancel(ctx)

	op := &inflightReq{subtype: subtype, cancel: cancel}

	e.inflightMu.Lock()
	e.inflight[requestID] = op
	e.inflightMu.Unlock()

	e.wg.Go(func() {
		defer func() {
			e.inflightMu.Lock()
			op.completed = true
			delete(e.inflight, requestID)
			e.inflightMu.Unlock()

			cancel()
		}()

		payload, err := e.invoke(opCtx, handler, req)

		if opCtx.Err() != nil && stderrors.Is(opCtx.Err(), context.Canceled) {
			e.log.Debug("Handler cancelled", "request_id", requestID)
			e.respondError(ctx, requestID, errs.ErrHandlerCancelled.Error())

			return
		}

		if err != nil {
			// Callback failures become error responses; the connection
			// stays alive.
			e.log.Warn("Handler failed", "request_id", requestID, "error", err)
			e.respondError(ctx, requestID, err.Error())

			return
		}

		e.respondSuccess(ctx, requestID, payload)
	})
}

// invoke runs a handler, containing panics: a panicking host callback
// must not take down the read loop.
func (e *Engine) invoke(
	ctx context.Context,
	handler Handler,
	req *Request,
) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panic: %v", r)
		}
	}()

	return handler(ctx, req)
}

// routeCancel handles control_cancel_request from the remote side.
func (e *Engine) routeCancel(ctx context.Context, raw map[string]any) {
	requestID, ok := raw["request_id"].(string)
	if !ok {
		e.log.Warn("Cancel request missing request_id")

		return
	}

	e.inflightMu.Lock()
	op, found := e.inflight[requestID]

	var alreadyCompleted bool

	if found {
		alreadyCompleted = op.completed
		if !alreadyCompleted {
			op.cancel()
		}
	}

	e.inflightMu.Unlock()

	e.log.Debug("Cancel request processed",
		"request_id", requestID, "found", found, "already_completed", alreadyCompleted)

	e.writeResponse(ctx, map[string]any{
		"subtype":           "cancel_acknowledgment",
		"request_id":        requestID,
		"found":             found,
		"already_completed": alreadyCompleted,
	})
}

// respondSuccess writes a correlated success response.
func (e *Engine) respondSuccess(ctx context.Context, requestID string, payload map[string]any) {
	e.writeResponse(ctx, map[string]any{
		"subtype":    "success",
		"request_id": requestID,
		"response":   payload,
	})
}

// respondError writes a correlated error response.
func (e *Engine) respondError(ctx context.Context, requestID string, msg string) {
	e.writeResponse(ctx, map[string]any{
		"subtype":    "error",
		"request_id": requestID,
		"error":      msg,
	})
}

func (e *Engine) writeResponse(ctx context.Context, body map[string]any) {
	resp := &Response{Type: "control_response", Body: body}

	if err := e.writeEnvelope(ctx, resp); err != nil {
		if ctx.Err() != nil {
			e.log.Debug("Dropped control response during shutdown", "error", err)

			return
		}

		e.log.Error("Failed to write control response", "error", err)
	}
}

// writeEnvelope marshals and writes one envelope under the single-
// writer lock.
func (e *Engine) writeEnvelope(ctx context.Context, envelope any) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.transport.WriteLine(ctx, data)
}

// EndInput half-closes the transport: the remote side sees EOF after
// the pending input drains.
func (e *Engine) EndInput() error {
	return e.transport.EndInput()
}

// WriteMessage sends one non-control JSON object (a user turn) over
// the transport, honoring the same single-writer discipline as
// control traffic.
func (e *Engine) WriteMessage(ctx context.Context, payload any) error {
	if e.State() != StateReady {
		return errs.ErrNotConnected
	}

	return e.writeEnvelope(ctx, payload)
}
