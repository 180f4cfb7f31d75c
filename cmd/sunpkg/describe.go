// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunpkg/sunpkg/internal/naming"
)

type (
	describeFlags struct {
		project string
		json    bool
	}

	// descriptorView is the describe output.
	descriptorView struct {
		Name         string `json:"name"`
		DisplayName  string `json:"display_name"`
		SafeName     string `json:"safe_name"`
		Version      string `json:"version"`
		Iteration    string `json:"iteration"`
		Architecture string `json:"architecture"`
		FMRI         string `json:"fmri"`
		SVR4Package  string `json:"svr4_package"`
	}
)

func newDescribeCommand(app *App) *cobra.Command {
	flags := &describeFlags{}

	describeCmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the normalized package identity for a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd.Context(), app, flags)
		},
	}

	describeCmd.Flags().StringVarP(&flags.project, "project", "p", defaultProjectFile, "project definition (.cue or .toml)")
	describeCmd.Flags().BoolVar(&flags.json, "json", false, "print JSON instead of a table")

	return describeCmd
}

func runDescribe(ctx context.Context, app *App, flags *describeFlags) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return commandError("load configuration", err)
	}
	logger := app.newLogger(cfg)

	env, err := app.packagerEnv(cfg, logger, flags.project)
	if err != nil {
		return commandError("describe project", err)
	}

	d := naming.Describe(env.Project, env.Host, cfg.IPS.FMRITimestamp, func(raw, converted string) {
		logger.Warn("Package name converted", "name", raw, "converted", converted)
	})
	view := descriptorView{
		Name:         env.Project.PackageName(),
		DisplayName:  env.Project.DisplayName(),
		SafeName:     d.SafeName,
		Version:      d.Version,
		Iteration:    d.Iteration,
		Architecture: d.Architecture,
		FMRI:         d.FMRI,
		SVR4Package:  d.SolarisPackageName(),
	}

	if flags.json {
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render(view.DisplayName))
	for _, row := range [][2]string{
		{"name", view.Name},
		{"safe name", view.SafeName},
		{"version", view.Version},
		{"iteration", view.Iteration},
		{"architecture", view.Architecture},
		{"fmri", view.FMRI},
		{"svr4 package", view.SVR4Package},
	} {
		fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render(fmt.Sprintf("%-13s", row[0])), row[1])
	}
	return nil
}
