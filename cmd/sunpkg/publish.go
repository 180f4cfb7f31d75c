// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunpkg/sunpkg/internal/artifact"
	"github.com/sunpkg/sunpkg/internal/config"
	"github.com/sunpkg/sunpkg/internal/issue"
	"github.com/sunpkg/sunpkg/internal/publish"
)

type publishFlags struct {
	repo    string
	distros string
	backend string
	policy  string
}

func newPublishCommand(app *App) *cobra.Command {
	flags := &publishFlags{}

	publishCmd := &cobra.Command{
		Use:   "publish ARTIFACT...",
		Short: "Upload built packages to a remote repository",
		Long: `Upload built packages to packagecloud or an S3 bucket.

Every artifact is validated first: it must be a regular, non-empty file with
the .metadata.json written by 'sunpkg build'. Each artifact is then uploaded to
every configured distribution. With the default fail-fast policy the first
failure stops the run; best-effort continues and reports every failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), app, args, flags)
		},
	}

	publishCmd.Flags().StringVar(&flags.repo, "repo", "", "target repository, e.g. user/repo or a bucket name (default from publish.repository)")
	publishCmd.Flags().StringVar(&flags.distros, "distros", "", "comma-separated distributions, e.g. el/7,el/8 (default from publish.distros)")
	publishCmd.Flags().StringVar(&flags.backend, "backend", "", "packagecloud or s3 (default from publish.backend)")
	publishCmd.Flags().StringVar(&flags.policy, "policy", "", "fail-fast or best-effort (default from publish.policy)")

	return publishCmd
}

func runPublish(ctx context.Context, app *App, paths []string, flags *publishFlags) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return commandError("load configuration", err)
	}
	applyPublishFlags(cfg, flags)
	if valid, errs := cfg.Publish.Backend.IsValid(); !valid {
		return commandError("configure publisher", errors.Join(errs...))
	}
	logger := app.newLogger(cfg)

	policy, err := publish.ParsePolicy(cfg.Publish.Policy)
	if err != nil {
		return commandError("configure publisher", err)
	}
	if cfg.Publish.Repository == "" {
		return commandError("configure publisher", issue.NewErrorContext().
			WithOperation("configure publisher").
			WithSuggestion("Pass --repo or set publish.repository in your config").
			Wrap(errors.New("no target repository")).
			BuildError())
	}

	uploader, err := app.Uploaders(ctx, cfg)
	if err != nil {
		return commandError("configure publisher", err)
	}

	artifacts := make([]artifact.Artifact, 0, len(paths))
	for _, p := range paths {
		artifacts = append(artifacts, artifact.New(p))
	}

	pub := &publish.Publisher{
		Repo:     cfg.Publish.Repository,
		Distros:  cfg.Publish.Distros,
		Uploader: uploader,
		Policy:   policy,
		Logger:   logger.WithPrefix("Publisher: " + cfg.Publish.Backend.String()),
	}
	err = pub.Publish(ctx, artifacts, func(a artifact.Artifact) {
		fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(a.Name),
			SubtitleStyle.Render("→ "+cfg.Publish.Repository))
	})
	if err != nil {
		return commandError("publish artifacts", err)
	}
	return nil
}

// applyPublishFlags lets command line flags win over configuration.
func applyPublishFlags(cfg *config.Config, flags *publishFlags) {
	if flags.repo != "" {
		cfg.Publish.Repository = flags.repo
	}
	if flags.distros != "" {
		cfg.Publish.Distros = publish.ParseDistros(flags.distros)
	}
	if flags.backend != "" {
		cfg.Publish.Backend = config.Backend(flags.backend)
	}
	if flags.policy != "" {
		cfg.Publish.Policy = flags.policy
	}
}
