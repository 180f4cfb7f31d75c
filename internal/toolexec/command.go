// SPDX-License-Identifier: MPL-2.0

package toolexec

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

type (
	// Command is one program and its arguments.
	Command struct {
		Name string
		Args []string
	}

	// Invocation describes one run of a command or a pipeline of commands
	// whose stdout feeds the next command's stdin.
	Invocation struct {
		Commands []Command
		// Dir is the working directory of every command. Empty means the
		// current process directory.
		Dir string
		// StdinFile, when set, is read as the first command's stdin.
		StdinFile string
		// StdoutFile, when set, receives the last command's stdout instead of
		// Result.Stdout.
		StdoutFile string
		// AppendStdout appends to StdoutFile instead of truncating it.
		AppendStdout bool
	}

	// Result is the captured output of a successful invocation.
	Result struct {
		Stdout string
		Stderr string
	}
)

// Cmd builds a Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Run is shorthand for a single-command invocation.
func Run(cmd Command) Invocation {
	return Invocation{Commands: []Command{cmd}}
}

// Pipe connects cmds into a pipeline.
func Pipe(cmds ...Command) Invocation {
	return Invocation{Commands: cmds}
}

// In sets the working directory.
func (inv Invocation) In(dir string) Invocation {
	inv.Dir = dir
	return inv
}

// From reads stdin from a file.
func (inv Invocation) From(path string) Invocation {
	inv.StdinFile = path
	return inv
}

// To writes stdout to a file, truncating it.
func (inv Invocation) To(path string) Invocation {
	inv.StdoutFile = path
	inv.AppendStdout = false
	return inv
}

// AppendTo appends stdout to a file.
func (inv Invocation) AppendTo(path string) Invocation {
	inv.StdoutFile = path
	inv.AppendStdout = true
	return inv
}

// String renders the command with POSIX shell quoting, for display only.
func (c Command) String() string {
	words := make([]string, 0, len(c.Args)+1)
	words = append(words, quote(c.Name))
	for _, a := range c.Args {
		words = append(words, quote(a))
	}
	return strings.Join(words, " ")
}

// String renders the invocation as the equivalent shell command line.
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.Commands))
	for _, c := range inv.Commands {
		parts = append(parts, c.String())
	}
	s := strings.Join(parts, " | ")
	if inv.StdinFile != "" {
		s += " < " + quote(inv.StdinFile)
	}
	if inv.StdoutFile != "" {
		if inv.AppendStdout {
			s += " >> " + quote(inv.StdoutFile)
		} else {
			s += " > " + quote(inv.StdoutFile)
		}
	}
	return s
}

func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return q
}
