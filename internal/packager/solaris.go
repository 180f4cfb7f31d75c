// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/sunpkg/sunpkg/internal/artifact"
	"github.com/sunpkg/sunpkg/internal/fslist"
	"github.com/sunpkg/sunpkg/internal/naming"
	"github.com/sunpkg/sunpkg/internal/pipeline"
	"github.com/sunpkg/sunpkg/internal/staging"
	"github.com/sunpkg/sunpkg/internal/toolexec"
)

const (
	rootDir = "root"

	prototypeHeader = "i pkginfo\ni postinstall\ni postremove\n"

	// Rewrites the owner and group columns of pkgproto output.
	ownerRewrite = `{ $5 = "root"; $6 = "root"; print }`
)

// Package scripts in lookup order. Later sources overwrite earlier ones.
var scriptMap = []struct{ src, dst string }{
	{"postinst", "postinstall"},
	{"postrm", "postremove"},
	{"postinstall", "postinstall"},
	{"postremove", "postremove"},
}

type (
	// SolarisOptions configures the SVR4 packager.
	SolarisOptions struct {
		// OutputDir receives the package datastream.
		OutputDir string
		// FilesystemList names directories owned by the OS. Nil means the
		// built-in list.
		FilesystemList *fslist.List
	}

	// Solaris builds SVR4 package datastreams with pkgmk and pkgtrans.
	Solaris struct {
		env  Env
		opts SolarisOptions
	}
)

// NewSolaris returns the SVR4 packager.
func NewSolaris(env Env, opts SolarisOptions) *Solaris {
	env.defaults()
	env.Logger = env.Logger.WithPrefix("Packager: solaris")
	if opts.FilesystemList == nil {
		opts.FilesystemList = fslist.Default()
	}
	return &Solaris{env: env, opts: opts}
}

func (s *Solaris) ID() string { return artifact.FormatSolaris }

func (s *Solaris) Describe() naming.Descriptor {
	return naming.Describe(s.env.Project, s.env.Host, "", s.env.warnRename(s.ID()))
}

func (s *Solaris) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: "writeScripts", Run: s.writeScripts},
		{Name: "copyFiles", Run: s.copyFiles},
		{Name: "writePrototypeFile", Run: s.writePrototypeFile},
		{Name: "writePkginfoFile", Run: s.writePkginfoFile},
		{Name: "createPackageFile", Run: s.createPackageFile},
	}
}

// PackagePath is where the datastream for d is written.
func (s *Solaris) PackagePath(d naming.Descriptor) string {
	return filepath.Join(s.opts.OutputDir, d.SolarisPackageName())
}

func (s *Solaris) writeScripts(_ context.Context, st *pipeline.State) error {
	dir := s.env.Project.PackageScriptsDir
	if dir == "" {
		return nil
	}
	// Source is rooted at "/".
	if !filepath.IsAbs(dir) && !path.IsAbs(filepath.ToSlash(dir)) {
		return fmt.Errorf("package scripts directory %q is not absolute", dir)
	}
	for _, m := range scriptMap {
		src := path.Join(filepath.ToSlash(dir), m.src)
		info, err := s.env.Source.Stat(src)
		if errors.Is(err, fs.ErrNotExist) {
			s.env.Logger.Debug("No package script", "script", src)
			continue
		}
		if err != nil {
			return fmt.Errorf("stat package script: %w", err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		s.env.Logger.Debug("Adding script", "script", m.src, "destination", st.Staging.Path(m.dst))
		if err := st.Staging.CopyFile(s.env.Source, src, m.dst, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solaris) copyFiles(_ context.Context, st *pipeline.State) error {
	p := s.env.Project
	excl, err := staging.NewExcluder(p.Exclusions)
	if err != nil {
		return err
	}
	if err := st.Staging.Sync(s.env.Source, p.InstallDir, path.Join(rootDir, p.InstallDir), excl); err != nil {
		return err
	}

	for _, f := range p.ExtraPackageFiles {
		info, err := s.env.Source.Stat(f)
		if err != nil {
			return fmt.Errorf("extra package file %s: %w", f, err)
		}
		dst := path.Join(rootDir, f)
		if info.IsDir() {
			if err := st.Staging.Sync(s.env.Source, f, dst, nil); err != nil {
				return err
			}
			continue
		}
		if err := st.Staging.CopyFile(s.env.Source, f, dst, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solaris) writePrototypeFile(ctx context.Context, st *pipeline.State) error {
	lines, err := listFiles(st.Staging)
	if err != nil {
		return err
	}
	if err := st.Staging.WriteFile("files", joinLines(lines), 0o644); err != nil {
		return err
	}

	clean := FilterFileList(lines, s.opts.FilesystemList, func(line, reason string) {
		if reason == skipWhitespace {
			s.env.Logger.Warn("Skipping file with whitespace in its name", "file", line)
			return
		}
		s.env.Logger.Info("Skipping filesystem directory", "file", line)
	})
	if err := st.Staging.WriteFile("files.clean", joinLines(clean), 0o644); err != nil {
		return err
	}
	if err := st.Staging.WriteFile("Prototype", []byte(prototypeHeader), 0o644); err != nil {
		return err
	}

	pkgproto := toolexec.Run(toolexec.Cmd("pkgproto")).
		In(st.Staging.Path(rootDir)).
		From(st.Staging.Path("files.clean")).
		To(st.Staging.Path("Prototype.files"))
	if _, err := s.env.Runner.Run(ctx, pkgproto); err != nil {
		return err
	}

	awk := toolexec.Run(toolexec.Cmd("awk", ownerRewrite)).
		From(st.Staging.Path("Prototype.files")).
		AppendTo(st.Staging.Path("Prototype"))
	_, err = s.env.Runner.Run(ctx, awk)
	return err
}

func (s *Solaris) writePkginfoFile(_ context.Context, st *pipeline.State) error {
	d := st.Descriptor
	p := s.env.Project

	var b bytes.Buffer
	for _, kv := range [][2]string{
		{"CLASSES", "none"},
		{"TZ", "PST"},
		{"PATH", "/sbin:/usr/sbin:/usr/bin:/usr/sadm/install/bin"},
		{"BASEDIR", "/"},
		{"PKG", d.SafeName},
		{"NAME", d.SafeName},
		{"ARCH", d.Architecture},
		{"VERSION", d.PkgmkVersion()},
		{"CATEGORY", "application"},
		{"DESC", p.Description},
		{"VENDOR", p.Maintainer},
		{"EMAIL", p.Maintainer},
		{"PSTAMP", s.env.Host.Hostname() + s.env.Now().UTC().Format(time.RFC3339)},
	} {
		fmt.Fprintf(&b, "%s=%s\n", kv[0], kv[1])
	}
	return st.Staging.WriteFile("pkginfo", b.Bytes(), 0o644)
}

func (s *Solaris) createPackageFile(ctx context.Context, st *pipeline.State) error {
	d := st.Descriptor
	root := st.Staging.Path(rootDir)
	out := s.PackagePath(d)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, inv := range []toolexec.Invocation{
		toolexec.Run(toolexec.Cmd("pkgmk", "-o", "-r", "/", "-d", root, "-f", st.Staging.Path("Prototype"))),
		toolexec.Run(toolexec.Cmd("pkgchk", "-vd", root, d.SafeName)),
		toolexec.Run(toolexec.Cmd("pkgtrans", root, out, d.SafeName)),
	} {
		if _, err := s.env.Runner.Run(ctx, inv.In(st.Staging.Root())); err != nil {
			return err
		}
	}

	a := artifact.New(out)
	if _, err := artifact.WriteMetadata(a, d, artifact.FormatSolaris); err != nil {
		return err
	}
	st.Artifacts = append(st.Artifacts, a)
	s.env.Logger.Info("Package created", "path", out)
	return nil
}

// listFiles returns every entry under the staging root in the form
// `find . -print` prints it, starting with ".".
func listFiles(area *staging.Area) ([]string, error) {
	var lines []string
	err := area.Walk(rootDir, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			lines = append(lines, ".")
			return nil
		}
		lines = append(lines, "./"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list staged files: %w", err)
	}
	return lines, nil
}

const (
	skipWhitespace = "whitespace"
	skipFilesystem = "filesystem directory"
)

// FilterFileList drops entries containing whitespace and entries that name a
// filesystem directory once the leading "." is removed. Order is preserved.
// skipped, when non-nil, is told about every dropped entry.
func FilterFileList(lines []string, dirs *fslist.List, skipped func(line, reason string)) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		var reason string
		switch {
		case strings.ContainsFunc(line, unicode.IsSpace):
			reason = skipWhitespace
		case dirs.Contains(strings.TrimPrefix(line, ".")):
			reason = skipFilesystem
		}
		if reason != "" {
			if skipped != nil {
				skipped(line, reason)
			}
			continue
		}
		out = append(out, line)
	}
	return out
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
