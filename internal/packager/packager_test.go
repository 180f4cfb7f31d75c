// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"bufio"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/sunpkg/sunpkg/internal/hostinfo"
	"github.com/sunpkg/sunpkg/internal/toolexec"
	"github.com/sunpkg/sunpkg/internal/toolexec/toolexectest"
	"github.com/sunpkg/sunpkg/pkg/project"
)

var buildTime = time.Date(2016, 2, 26, 10, 9, 48, 0, time.UTC)

func testProject() *project.Project {
	return &project.Project{
		Name:              "App Suite",
		FriendlyName:      "The App Suite",
		Version:           "1.2.3",
		Iteration:         1,
		InstallDir:        "/opt/app",
		Description:       "Everything you need",
		Maintainer:        "Ops <ops@example.com>",
		PackageScriptsDir: "/scripts",
		ExtraPackageFiles: []string{"/etc/app.conf", "/var/app"},
		Exclusions:        []string{"**/*.a"},
	}
}

func testSource(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, body := range map[string]string{
		"/opt/app/bin/app":         "#!/bin/sh\n",
		"/opt/app/lib/libapp.a":    "static",
		"/opt/app/share/My File":   "spaced",
		"/scripts/postinst":        "echo postinst\n",
		"/scripts/postremove":      "echo postremove\n",
		"/etc/app.conf":            "port=80\n",
		"/var/app/data/seed.json":  "{}\n",
		"/elsewhere/not-included":  "x",
		"/opt/app/lib/libapp.so.1": "so",
	} {
		if err := util.WriteFile(fs, name, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func testEnv(t *testing.T, runner toolexec.Runner) Env {
	t.Helper()
	return Env{
		Project: testProject(),
		Host:    hostinfo.Static{MachineName: "i86pc", HostName: "buildhost"},
		Runner:  runner,
		Source:  testSource(t),
		Now:     func() time.Time { return buildTime },
	}
}

// fakeSVR4Tools answers pkgproto, awk and pkgtrans the way the real tools
// would for the purpose of these tests.
func fakeSVR4Tools() *toolexectest.Recorder {
	return toolexectest.New().
		On("pkgproto", func(inv toolexec.Invocation) (string, error) {
			var out strings.Builder
			sc := bufio.NewScanner(strings.NewReader(toolexectest.Input(inv)))
			for sc.Scan() {
				out.WriteString("f none " + sc.Text() + " 0644 builder staff\n")
			}
			return out.String(), nil
		}).
		On("awk", func(inv toolexec.Invocation) (string, error) {
			var out strings.Builder
			sc := bufio.NewScanner(strings.NewReader(toolexectest.Input(inv)))
			for sc.Scan() {
				f := strings.Fields(sc.Text())
				f[4], f[5] = "root", "root"
				out.WriteString(strings.Join(f, " ") + "\n")
			}
			return out.String(), nil
		}).
		On("pkgtrans", func(inv toolexec.Invocation) (string, error) {
			return "", os.WriteFile(inv.Commands[0].Args[1], []byte("# PaCkAgE DaTaStReAm\n"), 0o644)
		})
}

func readStaged(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(dir + "/" + name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}
