// SPDX-License-Identifier: MPL-2.0

// Package toolexectest provides a scripted toolexec.Runner for tests.
package toolexectest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sunpkg/sunpkg/internal/toolexec"
)

// Handler produces the outcome of one invocation. Returned stdout is written
// to the invocation's StdoutFile when it has one.
type Handler func(inv toolexec.Invocation) (stdout string, err error)

// Recorder records every invocation and answers it with a handler chosen by
// the name of the invocation's first command.
type Recorder struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []toolexec.Invocation
}

// New returns a Recorder that succeeds with empty output for unknown tools.
func New() *Recorder {
	return &Recorder{handlers: make(map[string]Handler)}
}

// On registers h for invocations starting with tool.
func (r *Recorder) On(tool string, h Handler) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tool] = h
	return r
}

// Fail makes every invocation of tool exit with code and stderr.
func (r *Recorder) Fail(tool string, code int, stderr string) *Recorder {
	return r.On(tool, func(inv toolexec.Invocation) (string, error) {
		return "", &toolexec.ToolError{Command: inv.String(), ExitCode: code, Stderr: stderr}
	})
}

// Run implements toolexec.Runner.
func (r *Recorder) Run(ctx context.Context, inv toolexec.Invocation) (*toolexec.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inv.Commands) == 0 {
		return nil, fmt.Errorf("toolexectest: empty invocation")
	}

	r.mu.Lock()
	r.calls = append(r.calls, inv)
	h := r.handlers[inv.Commands[0].Name]
	r.mu.Unlock()

	var out string
	if h != nil {
		var err error
		if out, err = h(inv); err != nil {
			return nil, err
		}
	}

	if inv.StdoutFile != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if inv.AppendStdout {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(inv.StdoutFile, flags, 0o644)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if _, err := f.WriteString(out); err != nil {
			return nil, err
		}
		return &toolexec.Result{}, nil
	}
	return &toolexec.Result{Stdout: out}, nil
}

// Calls returns every recorded invocation in order.
func (r *Recorder) Calls() []toolexec.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toolexec.Invocation(nil), r.calls...)
}

// Names returns the first command name of each recorded invocation.
func (r *Recorder) Names() []string {
	calls := r.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Commands[0].Name
	}
	return names
}

// Lines returns each recorded invocation rendered as a command line.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}

// Called reports whether any invocation started with tool.
func (r *Recorder) Called(tool string) bool {
	for _, n := range r.Names() {
		if n == tool {
			return true
		}
	}
	return false
}

// Input returns the content of the invocation's StdinFile, or "".
func Input(inv toolexec.Invocation) string {
	if inv.StdinFile == "" {
		return ""
	}
	data, err := os.ReadFile(inv.StdinFile)
	if err != nil {
		return ""
	}
	return string(data)
}
