// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		want  bool
	}{
		{LogLevelDebug, true},
		{LogLevelInfo, true},
		{LogLevelWarn, true},
		{LogLevelError, true},
		{"", false},
		{"trace", false},
		{"INFO", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.level.IsValid()
			if isValid != tt.want {
				t.Errorf("LogLevel(%q).IsValid() = %v, want %v", tt.level, isValid, tt.want)
			}
			if !tt.want {
				if len(errs) == 0 {
					t.Fatalf("LogLevel(%q).IsValid() returned no errors, want error", tt.level)
				}
				if !errors.Is(errs[0], ErrInvalidLogLevel) {
					t.Errorf("error should wrap ErrInvalidLogLevel, got: %v", errs[0])
				}
			}
		})
	}
}

func TestColorMode_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode ColorMode
		want bool
	}{
		{ColorAuto, true},
		{ColorAlways, true},
		{ColorNever, true},
		{"dark", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.mode.IsValid()
			if isValid != tt.want {
				t.Errorf("ColorMode(%q).IsValid() = %v, want %v", tt.mode, isValid, tt.want)
			}
			if !tt.want && !errors.Is(errs[0], ErrInvalidColorMode) {
				t.Errorf("error should wrap ErrInvalidColorMode, got: %v", errs[0])
			}
		})
	}
}

func TestBackend_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		backend Backend
		want    bool
	}{
		{BackendPackagecloud, true},
		{BackendS3, true},
		{"ftp", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.backend.IsValid()
			if isValid != tt.want {
				t.Errorf("Backend(%q).IsValid() = %v, want %v", tt.backend, isValid, tt.want)
			}
			if !tt.want {
				if !errors.Is(errs[0], ErrInvalidBackend) {
					t.Errorf("error should wrap ErrInvalidBackend, got: %v", errs[0])
				}
				if !strings.Contains(errs[0].Error(), "packagecloud, s3") {
					t.Errorf("error should list valid values, got: %v", errs[0])
				}
			}
		})
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero timeout", func(c *Config) { c.Tools.Timeout = 0 }, false},
		{"relative tool path", func(c *Config) { c.Tools.Paths = map[string]string{"pkgmk": "bin/pkgmk"} }, false},
		{"absolute tool path", func(c *Config) { c.Tools.Paths = map[string]string{"pkgmk": "/usr/bin/pkgmk"} }, true},
		{"unknown policy", func(c *Config) { c.Publish.Policy = "sometimes" }, false},
		{"best-effort policy", func(c *Config) { c.Publish.Policy = "best-effort" }, true},
		{"bad backend", func(c *Config) { c.Publish.Backend = "ftp" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig(func(string) string { return "" })
			tt.mutate(cfg)
			isValid, errs := cfg.IsValid()
			if isValid != tt.want {
				t.Fatalf("IsValid() = %v, want %v (errs: %v)", isValid, tt.want, errs)
			}
			if !tt.want && !errors.Is(errs[0], ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got: %v", errs[0])
			}
		})
	}
}

func TestDefaultConfig_UserEnvironment(t *testing.T) {
	t.Parallel()

	env := map[string]string{"HOME": "/export/home/builder", "LOGNAME": "builder"}
	cfg := defaultConfig(func(k string) string { return env[k] })

	if cfg.IPS.Repository != "/export/home/builder/publish/repo" {
		t.Errorf("IPS.Repository = %q", cfg.IPS.Repository)
	}
	if cfg.IPS.Publisher != "builder" {
		t.Errorf("IPS.Publisher = %q", cfg.IPS.Publisher)
	}
	if cfg.Tools.Timeout != 30*time.Minute {
		t.Errorf("Tools.Timeout = %s, want 30m", cfg.Tools.Timeout)
	}
	if cfg.IPS.FMRITimestamp != "20160226T100948Z" {
		t.Errorf("IPS.FMRITimestamp = %q", cfg.IPS.FMRITimestamp)
	}
	if cfg.Publish.Policy != "fail-fast" {
		t.Errorf("Publish.Policy = %q", cfg.Publish.Policy)
	}

	empty := defaultConfig(func(string) string { return "" })
	if empty.IPS.Repository != "" || empty.IPS.Publisher != "" {
		t.Errorf("without HOME/LOGNAME got repository %q publisher %q", empty.IPS.Repository, empty.IPS.Publisher)
	}
}

func TestConfig_LogLevel(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig(func(string) string { return "" })
	cfg.Log.Level = LogLevelWarn
	if got := cfg.LogLevel(); got != LogLevelWarn {
		t.Errorf("LogLevel() = %q, want warn", got)
	}
	cfg.UI.Verbose = true
	if got := cfg.LogLevel(); got != LogLevelDebug {
		t.Errorf("verbose LogLevel() = %q, want debug", got)
	}
}

func TestConfig_Redacted(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig(func(string) string { return "" })
	cfg.Packagecloud.Token = "secret-token"
	cfg.S3.SecretAccessKey = "secret-key"

	red := cfg.Redacted()
	if red.Packagecloud.Token != redacted || red.S3.SecretAccessKey != redacted {
		t.Errorf("credentials not masked: %+v %+v", red.Packagecloud, red.S3)
	}
	if cfg.Packagecloud.Token != "secret-token" {
		t.Error("Redacted() modified the receiver")
	}
	if out := GenerateCUE(red); strings.Contains(out, "secret") {
		t.Errorf("generated CUE leaks credentials:\n%s", out)
	}
}
