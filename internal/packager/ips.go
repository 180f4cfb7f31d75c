// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	_ "embed"
	"strings"

	"github.com/sunpkg/sunpkg/internal/artifact"
	"github.com/sunpkg/sunpkg/internal/naming"
	"github.com/sunpkg/sunpkg/internal/pipeline"
	"github.com/sunpkg/sunpkg/internal/render"
	"github.com/sunpkg/sunpkg/internal/toolexec"
)

// DefaultLintRepository is the reference repository pkglint checks against.
const DefaultLintRepository = "http://pkg.oracle.com/solaris/release"

//go:embed resources/gen.manifestfile.tmpl
var genManifestTemplate string

type (
	// IPSOptions configures the IPS packager. Repository and Publisher have
	// no defaults here; the caller resolves them from configuration.
	IPSOptions struct {
		// Repository is the local filesystem package repository.
		Repository string
		// Publisher is the publisher name registered in Repository.
		Publisher      string
		LintRepository string
		// FMRITimestamp overrides naming.DefaultFMRITimestamp.
		FMRITimestamp string
	}

	// IPS builds a package manifest with the pkg(5) tools and publishes it
	// into a local repository.
	IPS struct {
		env  Env
		opts IPSOptions
	}
)

// NewIPS returns the IPS packager.
func NewIPS(env Env, opts IPSOptions) *IPS {
	env.defaults()
	env.Logger = env.Logger.WithPrefix("Packager: ips")
	if opts.LintRepository == "" {
		opts.LintRepository = DefaultLintRepository
	}
	return &IPS{env: env, opts: opts}
}

func (p *IPS) ID() string { return artifact.FormatIPS }

func (p *IPS) Describe() naming.Descriptor {
	return naming.Describe(p.env.Project, p.env.Host, p.opts.FMRITimestamp, p.env.warnRename(p.ID()))
}

func (p *IPS) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		pipeline.Group("generatePkgManifest",
			pipeline.Stage{Name: "generateMetadata", Run: p.generateMetadata},
			pipeline.Stage{Name: "generateContents", Run: p.generateContents},
			pipeline.Stage{Name: "generateDeps", Run: p.generateDeps},
			pipeline.Stage{Name: "checkManifest", Run: p.checkManifest},
		),
		{Name: "createRepo", Run: p.createRepo},
		{Name: "publishPkg", Run: p.publishPkg},
	}
}

func manifestPath(st *pipeline.State, suffix string) string {
	return st.Staging.Path(st.Descriptor.SafeName + ".p5m" + suffix)
}

func (p *IPS) run(ctx context.Context, st *pipeline.State, inv toolexec.Invocation) (*toolexec.Result, error) {
	return p.env.Runner.Run(ctx, inv.In(st.Staging.Root()))
}

func (p *IPS) generateMetadata(_ context.Context, st *pipeline.State) error {
	d := st.Descriptor
	proj := p.env.Project
	text, err := render.Render("gen.manifestfile", genManifestTemplate, map[string]any{
		"Name":        d.SafeName,
		"InstallDir":  proj.InstallDir,
		"FMRI":        d.FMRI,
		"Description": `"` + proj.Description + `"`,
		"Summary":     `"` + proj.DisplayName() + `"`,
		"Arch":        d.Architecture,
	})
	if err != nil {
		return err
	}
	if err := st.Staging.WriteFile("gen.manifestfile", []byte(text), 0o644); err != nil {
		return err
	}
	p.env.Logger.Debug("Rendered template", "file", "gen.manifestfile", "content", text)

	return st.Staging.MkdirAll("proto_install")
}

func (p *IPS) generateContents(ctx context.Context, st *pipeline.State) error {
	installDir := p.env.Project.InstallDir
	p5m1 := manifestPath(st, ".1")

	gen := toolexec.Pipe(
		toolexec.Cmd("pkgsend", "generate", installDir),
		toolexec.Cmd("pkgfmt"),
	).To(p5m1)
	if _, err := p.run(ctx, st, gen); err != nil {
		return err
	}

	res, err := p.run(ctx, st, toolexec.Run(toolexec.Cmd("uname", "-p")))
	if err != nil {
		return err
	}
	processor := strings.TrimSpace(res.Stdout)

	mogrify := toolexec.Pipe(
		toolexec.Cmd("pkgmogrify", "-DARCH="+processor, p5m1, st.Staging.Path("gen.manifestfile")),
		toolexec.Cmd("pkgfmt"),
	).To(manifestPath(st, ".2"))
	_, err = p.run(ctx, st, mogrify)
	return err
}

func (p *IPS) generateDeps(ctx context.Context, st *pipeline.State) error {
	p5m3 := manifestPath(st, ".3")
	gen := toolexec.Pipe(
		toolexec.Cmd("pkgdepend", "generate", "-md", p.env.Project.InstallDir, manifestPath(st, ".2")),
		toolexec.Cmd("pkgfmt"),
	).To(p5m3)
	if _, err := p.run(ctx, st, gen); err != nil {
		return err
	}
	_, err := p.run(ctx, st, toolexec.Run(toolexec.Cmd("pkgdepend", "resolve", "-m", p5m3)))
	return err
}

func (p *IPS) checkManifest(ctx context.Context, st *pipeline.State) error {
	lint := toolexec.Cmd("pkglint",
		"-c", st.Staging.Path("lint-cache"),
		"-r", p.opts.LintRepository,
		manifestPath(st, ".3.res"))
	_, err := p.run(ctx, st, toolexec.Run(lint))
	return err
}

func (p *IPS) createRepo(ctx context.Context, st *pipeline.State) error {
	if _, err := p.run(ctx, st, toolexec.Run(toolexec.Cmd("pkgrepo", "create", p.opts.Repository))); err != nil {
		return err
	}
	publish := toolexec.Cmd("pkgsend", "publish",
		"-s", p.opts.Repository,
		"-d", p.env.Project.InstallDir,
		manifestPath(st, ".3.res"))
	_, err := p.run(ctx, st, toolexec.Run(publish))
	return err
}

func (p *IPS) publishPkg(ctx context.Context, st *pipeline.State) error {
	cmd := toolexec.Cmd("pkgrepo", "add-publisher", "-s", p.opts.Repository, p.opts.Publisher)
	if _, err := p.run(ctx, st, toolexec.Run(cmd)); err != nil {
		return err
	}
	st.Artifacts = append(st.Artifacts, artifact.Artifact{Name: st.Descriptor.FMRI, Path: p.opts.Repository})
	p.env.Logger.Info("Package published", "fmri", st.Descriptor.FMRI, "repository", p.opts.Repository)
	return nil
}
