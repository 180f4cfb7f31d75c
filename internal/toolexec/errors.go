// SPDX-License-Identifier: MPL-2.0

package toolexec

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrToolNotFound is returned when a tool binary cannot be resolved.
	ErrToolNotFound = errors.New("packaging tool not found")
	// ErrToolTimeout is returned when an invocation exceeds its time budget.
	ErrToolTimeout = errors.New("packaging tool timed out")
)

type (
	// ToolError reports a tool that exited with a non-zero status. Stdout and
	// Stderr hold everything the tool printed, since that is the primary
	// debugging signal for packaging failures.
	ToolError struct {
		Command  string
		ExitCode int
		Stdout   string
		Stderr   string
	}

	// TimeoutError reports an invocation that was killed at its deadline.
	TimeoutError struct {
		Command string
		Timeout time.Duration
		Stderr  string
	}
)

func (e *ToolError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: exit status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		sb.WriteString("\n")
		sb.WriteString(s)
	} else if s := strings.TrimSpace(e.Stdout); s != "" {
		sb.WriteString("\n")
		sb.WriteString(s)
	}
	return sb.String()
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Command, e.Timeout)
}

// Unwrap makes TimeoutError match ErrToolTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrToolTimeout
}

// ExitCode returns the exit status carried by err, or 0 when err does not wrap
// a ToolError.
func ExitCode(err error) int {
	var te *ToolError
	if errors.As(err, &te) {
		return te.ExitCode
	}
	return 0
}
