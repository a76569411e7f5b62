// Package stdio implements the process transport: it spawns the agent
// process from a verbatim argv and speaks newline-delimited JSON over
// its stdin/stdout, capturing stderr for diagnostics.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/jpmartel/agentwire/internal/config"
	"github.com/jpmartel/agentwire/internal/errs"
)

const (
	// defaultMaxLineBytes caps one stdout line.
	defaultMaxLineBytes = 1024 * 1024

	// stderrTailBytes bounds the retained stderr diagnostic tail. The
	// callback still sees every line; only the buffer for ProcessError
	// reporting is capped, keeping the most recent output.
	stderrTailBytes = 256 * 1024
)

// Transport runs the agent as a child process. The argv is used
// verbatim: no flag construction, no binary discovery.
type Transport struct {
	log     *slog.Logger
	argv    []string
	cwd     string
	env     map[string]string
	onDiag  func(string)
	maxLine int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu          sync.Mutex
	closing     bool
	stdinClosed bool
}

var _ config.Transport = (*Transport)(nil)

// New builds an unstarted process transport from the options.
// opts.Command must be non-empty.
func New(log *slog.Logger, opts *config.Options) *Transport {
	maxLine := defaultMaxLineBytes
	if opts.MaxLineBytes != nil && *opts.MaxLineBytes > 0 {
		maxLine = *opts.MaxLineBytes
	}

	return &Transport{
		log:     log.With("component", "stdio_transport"),
		argv:    opts.Command,
		cwd:     opts.Cwd,
		env:     opts.Env,
		onDiag:  opts.Stderr,
		maxLine: maxLine,
	}
}

// Connect spawns the process and wires up its pipes.
func (t *Transport) Connect(ctx context.Context) error {
	if len(t.argv) == 0 {
		return &errs.ConnError{Err: stderrors.New("empty command")}
	}

	t.log.Info("Starting agent process", "argv0", t.argv[0])

	//nolint:gosec // G204: the host supplies the argv deliberately
	cmd := exec.CommandContext(ctx, t.argv[0], t.argv[1:]...)
	cmd.Dir = t.cwd
	cmd.Env = mergedEnv(t.env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errs.ConnError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errs.ConnError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errs.ConnError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return &errs.ConnError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr

	t.log.Info("Agent process started", "pid", cmd.Process.Pid)

	return nil
}

// mergedEnv layers extra variables on top of the parent environment.
func mergedEnv(extra map[string]string) []string {
	env := os.Environ()

	for k, v := range extra {
		env = append(env, k+"="+v)
	}

	return env
}

// ReadLines consumes the process stdout line by line. Each line parses
// into a JSON object on the first channel; a malformed line produces a
// *errs.JSONDecodeError on the second and reading continues. Abnormal
// process exit produces a *errs.ProcessError carrying the stderr tail.
// Both channels close when the goroutine stops.
func (t *Transport) ReadLines(ctx context.Context) (<-chan map[string]any, <-chan error) {
	lines := make(chan map[string]any)
	readErrs := make(chan error, 1)

	tail := &tailBuffer{limit: stderrTailBytes}

	var stderrWg sync.WaitGroup

	// Stderr must be drained before cmd.Wait; the tail is what
	// ProcessError reports.
	stderrWg.Go(func() {
		scanner := bufio.NewScanner(t.stderr)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Text()
			tail.append(line)

			if t.onDiag != nil {
				t.onDiag(line)
			}
		}

		if err := scanner.Err(); err != nil {
			t.log.Debug("Stderr scanner stopped", "error", err)
		}
	})

	go func() {
		defer close(lines)
		defer close(readErrs)

		scanner := bufio.NewScanner(t.stdout)
		scanner.Buffer(make([]byte, t.maxLine), t.maxLine)

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				readErrs <- ctx.Err()

				return
			default:
			}

			raw := scanner.Bytes()

			var obj map[string]any

			if err := json.Unmarshal(raw, &obj); err != nil {
				readErrs <- &errs.JSONDecodeError{Line: string(raw), Err: err}

				continue
			}

			select {
			case lines <- obj:
			case <-ctx.Done():
				readErrs <- ctx.Err()

				return
			}
		}

		if err := scanner.Err(); err != nil {
			readErrs <- fmt.Errorf("read stdout: %w", err)
		}

		stderrWg.Wait()

		if err := t.cmd.Wait(); err != nil {
			t.mu.Lock()
			intentional := t.closing
			t.mu.Unlock()

			if intentional {
				t.log.Debug("Agent process terminated during shutdown")

				return
			}

			exitCode := 0
			if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
				exitCode = exitErr.ExitCode()
			}

			diag := tail.String()
			t.log.Error("Agent process exited abnormally", "exit_code", exitCode)

			readErrs <- &errs.ProcessError{ExitCode: exitCode, Stderr: diag, Err: err}

			return
		}

		t.log.Info("Agent process exited")
	}()

	return lines, readErrs
}

// WriteLine writes one JSON line to the process stdin, appending the
// newline if missing. Safe for concurrent use; a context cancellation
// during a blocked write closes stdin to unblock it.
func (t *Transport) WriteLine(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return errs.ErrNotConnected
	}

	if t.stdinClosed {
		return errs.ErrInputClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if len(data) == 0 || data[len(data)-1] != '\n' {
		framed := make([]byte, len(data)+1)
		copy(framed, data)
		framed[len(data)] = '\n'
		data = framed
	}

	done := make(chan error, 1)

	go func() {
		_, err := t.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		// Closing stdin unblocks the writer.
		_ = t.stdin.Close()
		t.stdinClosed = true

		select {
		case <-done:
		case <-time.After(time.Second):
			t.log.Warn("Write did not unblock after stdin close")
		}

		return ctx.Err()
	}
}

// EndInput half-closes the connection: the process sees EOF on stdin,
// finishes pending work, and exits on its own.
func (t *Transport) EndInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil || t.stdinClosed {
		return nil
	}

	t.log.Debug("Closing process stdin")

	err := t.stdin.Close()
	t.stdinClosed = true
	t.stdin = nil

	return err
}

// Ready reports whether the process is running with stdin open.
func (t *Transport) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// Close kills the process. Safe to call repeatedly.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closing = true
	t.stdinClosed = true

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing agent process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill agent process: %w", err)
		}
	}

	return nil
}

// tailBuffer keeps the most recent stderr lines within a byte limit.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	lines []string
	size  int
}

func (b *tailBuffer) append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	b.size += len(line) + 1

	for b.size > b.limit && len(b.lines) > 1 {
		b.size -= len(b.lines[0]) + 1
		b.lines = b.lines[1:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := ""

	for i, line := range b.lines {
		if i > 0 {
			out += "\n"
		}

		out += line
	}

	return out
}
