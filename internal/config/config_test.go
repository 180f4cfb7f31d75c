// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sunpkg/sunpkg/internal/issue"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", "/export/home/builder")
	t.Setenv("LOGNAME", "builder")

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}
	if cfg.Tools.Timeout != 30*time.Minute {
		t.Errorf("Tools.Timeout = %s", cfg.Tools.Timeout)
	}
	if cfg.IPS.Repository != "/export/home/builder/publish/repo" {
		t.Errorf("IPS.Repository = %q", cfg.IPS.Repository)
	}
	if cfg.IPS.Publisher != "builder" {
		t.Errorf("IPS.Publisher = %q", cfg.IPS.Publisher)
	}
	if cfg.Publish.Backend != BackendPackagecloud {
		t.Errorf("Publish.Backend = %q", cfg.Publish.Backend)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
log: level: "warn"
staging: {
	base_dir: "/var/tmp/sunpkg"
	keep:     true
}
tools: {
	timeout: "5m"
	paths: pkgmk: "/opt/tools/bin/pkgmk"
}
ips: {
	publisher:      "acme"
	fmri_timestamp: "20240101T000000Z"
}
publish: {
	backend:    "s3"
	repository: "acme-packages"
	distros: ["el/7", "el/8"]
	policy: "best-effort"
}
s3: path_style: true
`)

	cfg, resolved, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}

	if cfg.Log.Level != LogLevelWarn {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Staging.BaseDir != "/var/tmp/sunpkg" || !cfg.Staging.Keep {
		t.Errorf("Staging = %+v", cfg.Staging)
	}
	if cfg.Tools.Timeout != 5*time.Minute {
		t.Errorf("Tools.Timeout = %s", cfg.Tools.Timeout)
	}
	if cfg.Tools.Paths["pkgmk"] != "/opt/tools/bin/pkgmk" {
		t.Errorf("Tools.Paths = %v", cfg.Tools.Paths)
	}
	if cfg.IPS.Publisher != "acme" || cfg.IPS.FMRITimestamp != "20240101T000000Z" {
		t.Errorf("IPS = %+v", cfg.IPS)
	}
	if cfg.Publish.Backend != BackendS3 || cfg.Publish.Repository != "acme-packages" {
		t.Errorf("Publish = %+v", cfg.Publish)
	}
	if !reflect.DeepEqual(cfg.Publish.Distros, []string{"el/7", "el/8"}) {
		t.Errorf("Publish.Distros = %v", cfg.Publish.Distros)
	}
	if cfg.Publish.Policy != "best-effort" {
		t.Errorf("Publish.Policy = %q", cfg.Publish.Policy)
	}
	if !cfg.S3.PathStyle {
		t.Error("S3.PathStyle = false")
	}
	// Unset keys keep their defaults.
	if cfg.Packagecloud.URL != "https://packagecloud.io" {
		t.Errorf("Packagecloud.URL = %q", cfg.Packagecloud.URL)
	}
}

func TestLoad_ConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(`output: dir: "/srv/packages"`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if resolved != filepath.Join(dir, "config.cue") {
		t.Errorf("resolved path = %q", resolved)
	}
	if cfg.Output.Dir != "/srv/packages" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `ips: publisher: "from-file"`)
	t.Setenv("SUNPKG_IPS_PUBLISHER", "from-env")
	t.Setenv("SUNPKG_TOOLS_TIMEOUT", "90s")
	t.Setenv("SUNPKG_PUBLISH_DISTROS", "ubuntu/trusty, el/7,,")
	t.Setenv("SUNPKG_UI_VERBOSE", "true")

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.IPS.Publisher != "from-env" {
		t.Errorf("IPS.Publisher = %q, want from-env", cfg.IPS.Publisher)
	}
	if cfg.Tools.Timeout != 90*time.Second {
		t.Errorf("Tools.Timeout = %s, want 1m30s", cfg.Tools.Timeout)
	}
	if !reflect.DeepEqual(cfg.Publish.Distros, []string{"ubuntu/trusty", "el/7"}) {
		t.Errorf("Publish.Distros = %q", cfg.Publish.Distros)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose = false, want true")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", `colour: "red"`, "colour"},
		{"wrong type", `staging: keep: "yes"`, "keep"},
		{"bad enum", `publish: policy: "sometimes"`, "policy"},
		{"bad timestamp", `ips: fmri_timestamp: "yesterday"`, "fmri_timestamp"},
		{"bad timeout", `tools: timeout: "forever"`, "timeout"},
		{"syntax", `log: {`, "config.cue"},
		{"relative tool path", `tools: paths: pkgmk: "bin/pkgmk"`, "not an absolute path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, tt.content)
			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected an error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if ae.IssueID != issue.ConfigLoadFailedId {
				t.Errorf("IssueID = %v, want ConfigLoadFailedId", ae.IssueID)
			}
			if !strings.Contains(ae.Cause.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", ae.Cause, tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := loadWithOptions(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig(func(string) string { return "" })
	cfg.Tools.Timeout = 45 * time.Minute
	cfg.Tools.Paths = map[string]string{"pkgtrans": "/usr/bin/pkgtrans", "pkgmk": "/usr/bin/pkgmk"}
	cfg.Solaris.FilesystemList = "/etc/sunpkg/filesystem_list"
	cfg.Publish.Distros = []string{"el/7"}
	cfg.Packagecloud.User = "acme"

	path := filepath.Join(t.TempDir(), "nested", "config.cue")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, GenerateCUE(cfg))
	}
	if got.Tools.Timeout != cfg.Tools.Timeout {
		t.Errorf("Tools.Timeout = %s, want %s", got.Tools.Timeout, cfg.Tools.Timeout)
	}
	if !reflect.DeepEqual(got.Tools.Paths, cfg.Tools.Paths) {
		t.Errorf("Tools.Paths = %v, want %v", got.Tools.Paths, cfg.Tools.Paths)
	}
	if got.Solaris.FilesystemList != cfg.Solaris.FilesystemList {
		t.Errorf("Solaris.FilesystemList = %q", got.Solaris.FilesystemList)
	}
	if got.Packagecloud.User != "acme" {
		t.Errorf("Packagecloud.User = %q", got.Packagecloud.User)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	path, err := DefaultPath(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	created, err := CreateDefaultConfig(path)
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %v, %v; want true, nil", created, err)
	}

	if err := os.WriteFile(path, []byte(`log: level: "error"`), 0o600); err != nil {
		t.Fatal(err)
	}
	created, err = CreateDefaultConfig(path)
	if err != nil || created {
		t.Fatalf("second CreateDefaultConfig() = %v, %v; want false, nil", created, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `log: level: "error"` {
		t.Error("existing config was overwritten")
	}
}
