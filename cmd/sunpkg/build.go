// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sunpkg/sunpkg/internal/artifact"
	"github.com/sunpkg/sunpkg/internal/config"
	"github.com/sunpkg/sunpkg/internal/fslist"
	"github.com/sunpkg/sunpkg/internal/issue"
	"github.com/sunpkg/sunpkg/internal/packager"
	"github.com/sunpkg/sunpkg/internal/pipeline"
	"github.com/sunpkg/sunpkg/pkg/project"
)

const defaultProjectFile = "project.cue"

// buildFlags holds the flags shared by every build subcommand.
type buildFlags struct {
	project     string
	output      string
	stagingDir  string
	keepStaging bool
}

func newBuildCommand(app *App) *cobra.Command {
	flags := &buildFlags{}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a package from an installed tree",
		Long: `Build a package from the project's install directory.

The build runs in a fresh staging directory. Staging is removed after a
successful build unless --keep-staging is set, and always kept after a
failure so the generated files can be inspected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	buildCmd.PersistentFlags().StringVarP(&flags.project, "project", "p", defaultProjectFile, "project definition (.cue or .toml)")
	buildCmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "", "output directory for SVR4 datastreams (default from output.dir)")
	buildCmd.PersistentFlags().StringVar(&flags.stagingDir, "staging-dir", "", "parent directory for the staging area (default from staging.base_dir)")
	buildCmd.PersistentFlags().BoolVar(&flags.keepStaging, "keep-staging", false, "keep the staging directory after a successful build")

	buildCmd.AddCommand(&cobra.Command{
		Use:   "solaris",
		Short: "Build an SVR4 package datastream with pkgmk and pkgtrans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), app, artifact.FormatSolaris, flags)
		},
	})

	buildCmd.AddCommand(&cobra.Command{
		Use:   "ips",
		Short: "Build and publish an IPS package into a local repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), app, artifact.FormatIPS, flags)
		},
	})

	return buildCmd
}

func runBuild(ctx context.Context, app *App, format string, flags *buildFlags) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return commandError("load configuration", err)
	}
	logger := app.newLogger(cfg)

	env, err := app.packagerEnv(cfg, logger, flags.project)
	if err != nil {
		return commandError("prepare build", err)
	}

	pk, err := newPackager(format, env, cfg, flags)
	if err != nil {
		return commandError("prepare build", err)
	}

	opts := packager.BuildOptions{
		StagingBase: firstNonEmpty(flags.stagingDir, cfg.Staging.BaseDir),
		KeepStaging: flags.keepStaging || cfg.Staging.Keep,
	}
	res, err := packager.Build(ctx, pk, opts, logger)
	if res != nil && res.Report != nil {
		printReport(app.stdout, res.Report)
	}
	if err != nil {
		return commandError("build "+format+" package", err)
	}

	for _, a := range res.Artifacts {
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(a.Name))
		fmt.Fprintf(app.stdout, "  %s\n", a.Path)
	}
	if res.StagingDir != "" {
		fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("staging kept at"), res.StagingDir)
	}
	return nil
}

// packagerEnv loads the project and detects the host.
func (a *App) packagerEnv(cfg *config.Config, logger *log.Logger, projectFile string) (packager.Env, error) {
	proj, err := project.Load(projectFile)
	if err != nil {
		return packager.Env{}, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(projectFile).
			WithIssue(issue.ProjectInvalidId).
			Wrap(err).
			BuildError()
	}

	host, err := a.Host()
	if err != nil {
		return packager.Env{}, fmt.Errorf("detect host: %w", err)
	}

	return packager.Env{
		Project: proj,
		Host:    host,
		Runner:  a.Runners(logger, cfg),
		Logger:  logger,
		Now:     time.Now,
	}, nil
}

func newPackager(format string, env packager.Env, cfg *config.Config, flags *buildFlags) (packager.Packager, error) {
	switch format {
	case artifact.FormatSolaris:
		var fsl *fslist.List
		if cfg.Solaris.FilesystemList != "" {
			var err error
			if fsl, err = fslist.Load(cfg.Solaris.FilesystemList); err != nil {
				return nil, err
			}
		}
		// Tools run inside the staging directory, so the output path must be absolute.
		out, err := filepath.Abs(firstNonEmpty(flags.output, cfg.Output.Dir, "."))
		if err != nil {
			return nil, fmt.Errorf("resolve output directory: %w", err)
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		return packager.NewSolaris(env, packager.SolarisOptions{OutputDir: out, FilesystemList: fsl}), nil

	case artifact.FormatIPS:
		if cfg.IPS.Repository == "" {
			return nil, issue.NewErrorContext().
				WithOperation("configure IPS build").
				WithSuggestion("Set ips.repository in your config or export SUNPKG_IPS_REPOSITORY").
				Wrap(errors.New("no IPS repository configured and $HOME is not set")).
				BuildError()
		}
		if cfg.IPS.Publisher == "" {
			return nil, issue.NewErrorContext().
				WithOperation("configure IPS build").
				WithSuggestion("Set ips.publisher in your config or export SUNPKG_IPS_PUBLISHER").
				Wrap(errors.New("no IPS publisher configured and $LOGNAME is not set")).
				BuildError()
		}
		repo, err := filepath.Abs(cfg.IPS.Repository)
		if err != nil {
			return nil, fmt.Errorf("resolve IPS repository: %w", err)
		}
		return packager.NewIPS(env, packager.IPSOptions{
			Repository:     repo,
			Publisher:      cfg.IPS.Publisher,
			LintRepository: cfg.IPS.LintRepository,
			FMRITimestamp:  cfg.IPS.FMRITimestamp,
		}), nil

	default:
		return nil, fmt.Errorf("unknown package format %q", format)
	}
}

func printReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintln(w, TitleStyle.Render("Stages"))
	for _, res := range r.Results {
		style := stageSkippedStyle
		switch res.Outcome {
		case pipeline.Succeeded:
			style = stageSucceededStyle
		case pipeline.Failed:
			style = stageFailedStyle
		}
		fmt.Fprintf(w, "  %-22s %s %s\n", res.Name, style.Render(fmt.Sprintf("%-9s", res.Outcome)),
			SubtitleStyle.Render(res.Duration.Round(time.Millisecond).String()))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
