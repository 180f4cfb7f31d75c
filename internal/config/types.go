// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sunpkg/sunpkg/internal/naming"
	"github.com/sunpkg/sunpkg/internal/packager"
	"github.com/sunpkg/sunpkg/internal/publish"
	"github.com/sunpkg/sunpkg/internal/toolexec"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// ColorAuto colors output only when stdout is a terminal.
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"

	BackendPackagecloud Backend = "packagecloud"
	BackendS3           Backend = "s3"

	redacted = "********"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidColorMode is returned when a ColorMode value is not recognized.
	ErrInvalidColorMode = errors.New("invalid color mode")
	// ErrInvalidBackend is returned when a Backend value is not recognized.
	ErrInvalidBackend = errors.New("invalid publish backend")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level the root logger emits.
	LogLevel string

	// ColorMode controls styled output.
	ColorMode string

	// Backend selects the remote repository type artifacts are published to.
	Backend string

	// InvalidValueError reports an enumerated value that is not recognized.
	// It unwraps to the sentinel for the value's type.
	InvalidValueError struct {
		Value    string
		Valid    []string
		sentinel error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Log          LogConfig          `json:"log" mapstructure:"log"`
		UI           UIConfig           `json:"ui" mapstructure:"ui"`
		Staging      StagingConfig      `json:"staging" mapstructure:"staging"`
		Tools        ToolsConfig        `json:"tools" mapstructure:"tools"`
		Solaris      SolarisConfig      `json:"solaris" mapstructure:"solaris"`
		Output       OutputConfig       `json:"output" mapstructure:"output"`
		IPS          IPSConfig          `json:"ips" mapstructure:"ips"`
		Publish      PublishConfig      `json:"publish" mapstructure:"publish"`
		Packagecloud PackagecloudConfig `json:"packagecloud" mapstructure:"packagecloud"`
		S3           S3Config           `json:"s3" mapstructure:"s3"`
	}

	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose lowers the log level to debug and renders issue guidance.
		Verbose bool      `json:"verbose" mapstructure:"verbose"`
		Color   ColorMode `json:"color" mapstructure:"color"`
	}

	// StagingConfig controls where staging areas are created and whether
	// they survive a successful build.
	StagingConfig struct {
		// BaseDir is the parent of every staging area; empty means the system temp dir.
		BaseDir string `json:"base_dir" mapstructure:"base_dir"`
		Keep    bool   `json:"keep" mapstructure:"keep"`
	}

	// ToolsConfig configures external tool invocation.
	ToolsConfig struct {
		// Timeout bounds every single invocation.
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		// Paths maps a tool name to an absolute binary path.
		Paths map[string]string `json:"paths" mapstructure:"paths"`
	}

	SolarisConfig struct {
		// FilesystemList replaces the embedded list of system directories.
		FilesystemList string `json:"filesystem_list" mapstructure:"filesystem_list"`
	}

	OutputConfig struct {
		Dir string `json:"dir" mapstructure:"dir"`
	}

	// IPSConfig configures the IPS packager.
	IPSConfig struct {
		Repository     string `json:"repository" mapstructure:"repository"`
		Publisher      string `json:"publisher" mapstructure:"publisher"`
		LintRepository string `json:"lint_repository" mapstructure:"lint_repository"`
		FMRITimestamp  string `json:"fmri_timestamp" mapstructure:"fmri_timestamp"`
	}

	// PublishConfig configures the publisher.
	PublishConfig struct {
		Backend    Backend  `json:"backend" mapstructure:"backend"`
		Repository string   `json:"repository" mapstructure:"repository"`
		Distros    []string `json:"distros" mapstructure:"distros"`
		Policy     string   `json:"policy" mapstructure:"policy"`
	}

	PackagecloudConfig struct {
		User  string `json:"user" mapstructure:"user"`
		Token string `json:"token" mapstructure:"token"`
		URL   string `json:"url" mapstructure:"url"`
	}

	// S3Config configures the S3 backend. Empty credentials and region fall
	// back to the AWS default configuration chain.
	S3Config struct {
		Region          string `json:"region" mapstructure:"region"`
		Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
		AccessKeyID     string `json:"access_key_id" mapstructure:"access_key_id"`
		SecretAccessKey string `json:"secret_access_key" mapstructure:"secret_access_key"`
		PathStyle       bool   `json:"path_style" mapstructure:"path_style"`
	}
)

// Error implements the error interface for InvalidValueError.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%v %q (valid: %s)", e.sentinel, e.Value, strings.Join(e.Valid, ", "))
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return e.sentinel }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Value: string(l), Valid: []string{"debug", "info", "warn", "error"}, sentinel: ErrInvalidLogLevel}}
	}
}

func (c ColorMode) String() string { return string(c) }

// IsValid returns whether the ColorMode is one of the defined modes.
func (c ColorMode) IsValid() (bool, []error) {
	switch c {
	case ColorAuto, ColorAlways, ColorNever:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Value: string(c), Valid: []string{"auto", "always", "never"}, sentinel: ErrInvalidColorMode}}
	}
}

func (b Backend) String() string { return string(b) }

// IsValid returns whether the Backend is a supported repository type.
func (b Backend) IsValid() (bool, []error) {
	switch b {
	case BackendPackagecloud, BackendS3:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Value: string(b), Valid: []string{"packagecloud", "s3"}, sentinel: ErrInvalidBackend}}
	}
}

// IsValid checks the constraints the CUE schema cannot see: values that
// arrived through environment overrides and cross-field rules.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.Color.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Publish.Backend.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := publish.ParsePolicy(c.Publish.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Tools.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("tools.timeout must be positive, got %s", c.Tools.Timeout))
	}
	for tool, p := range c.Tools.Paths {
		if !filepath.IsAbs(p) {
			errs = append(errs, fmt.Errorf("tools.paths.%s: %q is not an absolute path", tool, p))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// LogLevel is the effective root log level; verbose always wins.
func (c *Config) LogLevel() LogLevel {
	if c.UI.Verbose {
		return LogLevelDebug
	}
	return c.Log.Level
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Packagecloud.Token != "" {
		out.Packagecloud.Token = redacted
	}
	if out.S3.SecretAccessKey != "" {
		out.S3.SecretAccessKey = redacted
	}
	return &out
}

// DefaultConfig returns the default configuration for the current user.
func DefaultConfig() *Config {
	return defaultConfig(lookupUserEnv)
}

func defaultConfig(getenv func(string) string) *Config {
	repo := ""
	if home := getenv("HOME"); home != "" {
		repo = filepath.Join(home, "publish", "repo")
	}
	return &Config{
		Log:     LogConfig{Level: LogLevelInfo},
		UI:      UIConfig{Color: ColorAuto},
		Staging: StagingConfig{},
		Tools: ToolsConfig{
			Timeout: toolexec.DefaultTimeout,
			Paths:   map[string]string{},
		},
		Output: OutputConfig{Dir: "."},
		IPS: IPSConfig{
			Repository:     repo,
			Publisher:      getenv("LOGNAME"),
			LintRepository: packager.DefaultLintRepository,
			FMRITimestamp:  naming.DefaultFMRITimestamp,
		},
		Publish: PublishConfig{
			Backend: BackendPackagecloud,
			Distros: []string{},
			Policy:  string(publish.PolicyFailFast),
		},
		Packagecloud: PackagecloudConfig{URL: publish.DefaultPackagecloudURL},
	}
}
