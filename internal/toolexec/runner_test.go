// SPDX-License-Identifier: MPL-2.0

package toolexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX userland tools")
	}
}

func TestExecRunnerPipelineToFile(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "files")
	if err := os.WriteFile(in, []byte("./b\n./a\n./c\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "sorted")

	r := NewExecRunner(nil, nil, time.Minute)
	_, err := r.Run(context.Background(), Pipe(Cmd("cat"), Cmd("sort")).From(in).To(out))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "./a\n./b\n./c\n" {
		t.Errorf("output = %q", got)
	}
}

func TestExecRunnerAppend(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "Prototype")
	if err := os.WriteFile(out, []byte("i pkginfo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "Prototype.files")
	if err := os.WriteFile(src, []byte("d none opt 0755 bin bin\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewExecRunner(nil, nil, 0)
	if _, err := r.Run(context.Background(), Run(Cmd("cat")).From(src).AppendTo(out)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got, _ := os.ReadFile(out)
	if string(got) != "i pkginfo\nd none opt 0755 bin bin\n" {
		t.Errorf("appended output = %q", got)
	}
}

func TestExecRunnerCapturesStdoutAndDir(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	dir := t.TempDir()
	r := NewExecRunner(nil, nil, time.Minute)
	res, err := r.Run(context.Background(), Run(Cmd("pwd")).In(dir))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}

func TestExecRunnerToolError(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	r := NewExecRunner(nil, nil, time.Minute)
	_, err := r.Run(context.Background(), Run(Cmd("sh", "-c", "echo partial; echo 'pkgchk: ERROR' >&2; exit 3")))

	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("Run() error = %v, want *ToolError", err)
	}
	if te.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", te.ExitCode)
	}
	if !strings.Contains(te.Stderr, "pkgchk: ERROR") {
		t.Errorf("Stderr = %q", te.Stderr)
	}
	if !strings.Contains(te.Stdout, "partial") {
		t.Errorf("Stdout = %q", te.Stdout)
	}
}

func TestExecRunnerFailureInsidePipeline(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	r := NewExecRunner(nil, nil, time.Minute)
	_, err := r.Run(context.Background(), Pipe(Cmd("false"), Cmd("cat")))
	if ExitCode(err) != 1 {
		t.Errorf("Run() error = %v, want exit status 1 from the first command", err)
	}
}

func TestExecRunnerNotFound(t *testing.T) {
	t.Parallel()

	r := NewExecRunner(nil, nil, time.Minute)
	_, err := r.Run(context.Background(), Run(Cmd("sunpkg-no-such-tool")))
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("Run() error = %v, want ErrToolNotFound", err)
	}
}

func TestExecRunnerPathOverride(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	if err := os.WriteFile(in, []byte("set name=pkg.fmri\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewExecRunner(nil, map[string]string{"pkgfmt": "cat"}, time.Minute)
	res, err := r.Run(context.Background(), Run(Cmd("pkgfmt")).From(in))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stdout != "set name=pkg.fmri\n" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	r := NewExecRunner(nil, nil, 100*time.Millisecond)
	_, err := r.Run(context.Background(), Run(Cmd("sleep", "5")))
	if !errors.Is(err, ErrToolTimeout) {
		t.Fatalf("Run() error = %v, want ErrToolTimeout", err)
	}
	var te *ToolError
	if errors.As(err, &te) {
		t.Error("a timeout must not be reported as a ToolError")
	}
}

func TestExecRunnerCanceled(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewExecRunner(nil, nil, time.Minute)
	_, err := r.Run(ctx, Run(Cmd("sleep", "5")))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestExecRunnerEmpty(t *testing.T) {
	t.Parallel()

	if _, err := NewExecRunner(nil, nil, 0).Run(context.Background(), Invocation{}); err == nil {
		t.Error("Run() of an empty invocation should fail")
	}
}
