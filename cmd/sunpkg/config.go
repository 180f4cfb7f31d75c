// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunpkg/sunpkg/internal/config"
)

// newConfigCommand creates the `sunpkg config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sunpkg configuration",
		Long: `Manage sunpkg configuration.

Configuration is stored in:
  - Linux, Solaris: ~/.config/sunpkg/config.cue
  - macOS: ~/Library/Application Support/sunpkg/config.cue
  - Windows: %APPDATA%\sunpkg\config.cue

Every key can be overridden with a SUNPKG_ environment variable, for example
SUNPKG_IPS_PUBLISHER or SUNPKG_TOOLS_TIMEOUT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, showSecrets)
		},
	}
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print tokens and secret keys unmasked")
	cfgCmd.AddCommand(showCmd)

	var dir string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, dir)
		},
	}
	initCmd.Flags().StringVar(&dir, "dir", "", "directory to write config.cue into (default is the user config directory)")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, showSecrets bool) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return commandError("load configuration", err)
	}
	if !showSecrets {
		cfg = cfg.Redacted()
	}

	source := app.configPath
	if source == "" {
		if p, err := config.DefaultPath(""); err == nil && fileExistsCheck(p) {
			source = p
		} else if local := config.ConfigFileName + "." + config.ConfigFileExt; fileExistsCheck(local) {
			source = local
		}
	}
	if source == "" {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("// no config file found, showing defaults and environment overrides"))
	} else {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("// from "+source))
	}
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App, dir string) error {
	path, err := config.DefaultPath(dir)
	if err != nil {
		return commandError("locate configuration directory", err)
	}
	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return commandError("write configuration", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Config file already exists:"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created config file:"), path)
	return nil
}

func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
