// SPDX-License-Identifier: MPL-2.0

package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultTimeout bounds a single invocation when no timeout is configured.
const DefaultTimeout = 30 * time.Minute

// Runner executes invocations. Implementations must not touch the process
// working directory.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// ExecRunner runs invocations as operating system processes.
type ExecRunner struct {
	// Paths maps a tool name to the binary to execute in its place.
	Paths map[string]string
	// Timeout bounds each invocation; zero means DefaultTimeout.
	Timeout time.Duration
	Logger  *log.Logger
}

// NewExecRunner returns a runner with the given tool overrides and timeout.
func NewExecRunner(logger *log.Logger, paths map[string]string, timeout time.Duration) *ExecRunner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ExecRunner{Paths: paths, Timeout: timeout, Logger: logger}
}

// Resolve returns the executable path for a tool name.
func (r *ExecRunner) Resolve(name string) (string, error) {
	bin := name
	if p, ok := r.Paths[name]; ok && p != "" {
		bin = p
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%s: %w", bin, ErrToolNotFound)
	}
	return path, nil
}

// Run executes inv and waits for every command in it. Any command exiting
// non-zero fails the invocation with a *ToolError for the first such command.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if len(inv.Commands) == 0 {
		return nil, errors.New("toolexec: empty invocation")
	}
	line := inv.String()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmds := make([]*exec.Cmd, len(inv.Commands))
	stderrs := make([]*bytes.Buffer, len(inv.Commands))
	for i, c := range inv.Commands {
		bin, err := r.Resolve(c.Name)
		if err != nil {
			return nil, err
		}
		cmd := exec.CommandContext(runCtx, bin, c.Args...)
		cmd.Dir = inv.Dir
		stderrs[i] = &bytes.Buffer{}
		cmd.Stderr = stderrs[i]
		cmds[i] = cmd
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	if inv.StdinFile != "" {
		in, err := os.Open(inv.StdinFile)
		if err != nil {
			return nil, fmt.Errorf("open stdin for %s: %w", line, err)
		}
		closers = append(closers, in)
		cmds[0].Stdin = in
	}

	var stdout bytes.Buffer
	last := cmds[len(cmds)-1]
	if inv.StdoutFile != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if inv.AppendStdout {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		out, err := os.OpenFile(inv.StdoutFile, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open stdout for %s: %w", line, err)
		}
		closers = append(closers, out)
		last.Stdout = out
	} else {
		last.Stdout = &stdout
	}

	// Parent copies of pipe ends are closed once both sides have started.
	var pipeEnds []*os.File
	for i := 0; i < len(cmds)-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("create pipe for %s: %w", line, err)
		}
		cmds[i].Stdout = pw
		cmds[i+1].Stdin = pr
		pipeEnds = append(pipeEnds, pr, pw)
	}

	r.Logger.Debug("running", "command", line, "dir", inv.Dir)
	start := time.Now()

	started := 0
	var startErr error
	for _, cmd := range cmds {
		if startErr = cmd.Start(); startErr != nil {
			break
		}
		started++
	}
	for _, f := range pipeEnds {
		_ = f.Close()
	}

	waitErrs := make([]error, started)
	for i := 0; i < started; i++ {
		waitErrs[i] = cmds[i].Wait()
	}
	if startErr != nil {
		return nil, fmt.Errorf("start %s: %w", inv.Commands[started].Name, startErr)
	}

	res := &Result{Stdout: stdout.String(), Stderr: joinStderr(stderrs)}
	r.Logger.Debug("finished", "command", line, "duration", time.Since(start).Round(time.Millisecond))
	if res.Stdout != "" {
		r.Logger.Debug("stdout", "command", inv.Commands[len(cmds)-1].Name, "output", res.Stdout)
	}
	if res.Stderr != "" {
		r.Logger.Debug("stderr", "command", line, "output", res.Stderr)
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &TimeoutError{Command: line, Timeout: timeout, Stderr: res.Stderr}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", line, err)
	}

	for i, err := range waitErrs {
		if err == nil {
			continue
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ToolError{
				Command:  line,
				ExitCode: exitErr.ExitCode(),
				Stdout:   res.Stdout,
				Stderr:   stderrs[i].String(),
			}
		}
		return nil, fmt.Errorf("%s: %w", inv.Commands[i].String(), err)
	}
	return res, nil
}

func joinStderr(bufs []*bytes.Buffer) string {
	var parts []string
	for _, b := range bufs {
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	return strings.Join(parts, "")
}
