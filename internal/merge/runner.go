package merge

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"stitch/internal/command"
)

const waitDelay = 5 * time.Second

// Result is how a tool run ended.
type Result struct {
	ExitCode int
	Stderr   string
	Err      error
}

// Success reports a clean exit.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Process is a started tool run.
type Process interface {
	Wait() Result
}

// Runner starts the tool. Cancelling ctx must terminate the process.
type Runner interface {
	Start(ctx context.Context, inv command.Invocation) (Process, error)
}

// ExecRunner runs the tool with os/exec and keeps the tail of its stderr.
type ExecRunner struct {
	StderrTailBytes int
}

// NewExecRunner returns a runner that keeps up to tail bytes of stderr.
func NewExecRunner(tail int) *ExecRunner {
	return &ExecRunner{StderrTailBytes: tail}
}

// Start launches inv. A missing or non-executable program fails here.
func (r *ExecRunner) Start(ctx context.Context, inv command.Invocation) (Process, error) {
	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	stderr := newTailBuffer(r.StderrTailBytes)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
}

func (p *execProcess) Wait() Result {
	err := p.cmd.Wait()
	res := Result{ExitCode: -1, Stderr: p.stderr.String(), Err: err}
	if p.cmd.ProcessState != nil {
		res.ExitCode = p.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && res.ExitCode == 0 {
		res.ExitCode = -1
	}
	return res
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = 4096
	}
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
