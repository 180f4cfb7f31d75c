// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sunpkg",
		Short: "Build and publish Solaris SVR4 and IPS packages",
		Long: TitleStyle.Render("sunpkg") + SubtitleStyle.Render(" - Solaris packaging pipeline") + `

sunpkg stages an installed tree, generates package metadata and drives the
native Solaris packaging tools to produce SVR4 datastreams and IPS packages.
Every build runs in a fresh staging directory and stops at the first failing
stage.

` + SubtitleStyle.Render("Examples:") + `
  sunpkg describe --project project.cue     Show the normalized package identity
  sunpkg build solaris --project project.cue
  sunpkg build ips --project project.cue
  sunpkg publish pkg/app-1.2.3-1.i386.solaris --repo acme/stable --distros el/7
  sunpkg config show                          Show current configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $HOME/.config/sunpkg/config.cue)")

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newBuildCommand(app))
	rootCmd.AddCommand(newPublishCommand(app))
	rootCmd.AddCommand(newDescribeCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the command's exit status.
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		if app.verbose {
			fmt.Fprintln(app.stderr, formatErrorForDisplay(err, true))
			renderIssue(app.stderr, err, log.NewWithOptions(app.stderr, log.Options{Prefix: "sunpkg"}))
		}
		os.Exit(exitCode(err))
	}
}
