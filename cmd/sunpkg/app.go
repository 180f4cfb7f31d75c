// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/sunpkg/sunpkg/internal/config"
	"github.com/sunpkg/sunpkg/internal/hostinfo"
	"github.com/sunpkg/sunpkg/internal/issue"
	"github.com/sunpkg/sunpkg/internal/publish"
	"github.com/sunpkg/sunpkg/internal/toolexec"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every command handler receives an App.
	App struct {
		Config    ConfigProvider
		Host      HostDetector
		Runners   RunnerFactory
		Uploaders UploaderFactory
		stdout    io.Writer
		stderr    io.Writer

		// Persistent flag values.
		configPath string
		verbose    bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		Host      HostDetector
		Runners   RunnerFactory
		Uploaders UploaderFactory
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// HostDetector reports facts about the build host.
	HostDetector func() (hostinfo.Info, error)

	// RunnerFactory builds the external tool runner for one command.
	RunnerFactory func(logger *log.Logger, cfg *config.Config) toolexec.Runner

	// UploaderFactory builds the uploader for the configured backend.
	UploaderFactory func(ctx context.Context, cfg *config.Config) (publish.Uploader, error)
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Host == nil {
		deps.Host = hostinfo.Detect
	}
	if deps.Runners == nil {
		deps.Runners = newExecRunner
	}
	if deps.Uploaders == nil {
		deps.Uploaders = newUploader
	}

	return &App{
		Config:    deps.Config,
		Host:      deps.Host,
		Runners:   deps.Runners,
		Uploaders: deps.Uploaders,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

// loadConfig loads configuration honoring --config and --verbose.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, err
	}
	if a.verbose {
		cfg.UI.Verbose = true
	}
	applyColorMode(cfg.UI.Color)
	return cfg, nil
}

// newLogger creates the root logger for one command.
func (a *App) newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: "sunpkg"})
	level, err := log.ParseLevel(cfg.LogLevel().String())
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	if profile, ok := colorProfile(cfg.UI.Color); ok {
		logger.SetColorProfile(profile)
	}
	return logger
}

func colorProfile(mode config.ColorMode) (termenv.Profile, bool) {
	switch mode {
	case config.ColorNever:
		return termenv.Ascii, true
	case config.ColorAlways:
		return termenv.TrueColor, true
	default:
		return 0, false
	}
}

func applyColorMode(mode config.ColorMode) {
	if profile, ok := colorProfile(mode); ok {
		lipgloss.SetColorProfile(profile)
	}
}

func newExecRunner(logger *log.Logger, cfg *config.Config) toolexec.Runner {
	return toolexec.NewExecRunner(logger.WithPrefix("tools"), cfg.Tools.Paths, cfg.Tools.Timeout)
}

func newUploader(ctx context.Context, cfg *config.Config) (publish.Uploader, error) {
	switch cfg.Publish.Backend {
	case config.BackendS3:
		return publish.NewS3Uploader(ctx, publish.S3Options{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	case config.BackendPackagecloud, "":
		if cfg.Packagecloud.Token == "" {
			return nil, issue.NewErrorContext().
				WithOperation("configure packagecloud").
				WithSuggestion("Set packagecloud.token in your config or export SUNPKG_PACKAGECLOUD_TOKEN").
				WithIssue(issue.PublishFailedId).
				Wrap(errors.New("no packagecloud API token configured")).
				BuildError()
		}
		return publish.NewPackagecloudUploader(cfg.Packagecloud.URL, cfg.Packagecloud.User, cfg.Packagecloud.Token), nil
	default:
		return nil, fmt.Errorf("unsupported publish backend %q", cfg.Publish.Backend)
	}
}
