// SPDX-License-Identifier: MPL-2.0

// Package packager defines the SVR4 and IPS build pipelines and runs them
// against a fresh staging area.
package packager

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/sunpkg/sunpkg/internal/artifact"
	"github.com/sunpkg/sunpkg/internal/hostinfo"
	"github.com/sunpkg/sunpkg/internal/naming"
	"github.com/sunpkg/sunpkg/internal/pipeline"
	"github.com/sunpkg/sunpkg/internal/staging"
	"github.com/sunpkg/sunpkg/internal/toolexec"
	"github.com/sunpkg/sunpkg/pkg/project"
)

type (
	// Packager produces the stage list for one package format.
	Packager interface {
		// ID is the format identifier used on the command line.
		ID() string
		// Describe derives the normalized package identity.
		Describe() naming.Descriptor
		Stages() []pipeline.Stage
	}

	// Env holds the collaborators shared by every packager.
	Env struct {
		Project *project.Project
		Host    hostinfo.Info
		Runner  toolexec.Runner
		Logger  *log.Logger
		// Source is where the install tree, package scripts and extra files
		// are read from. Nil means the host root filesystem.
		Source billy.Filesystem
		// Now is the clock used for package stamps. Nil means time.Now.
		Now func() time.Time
	}

	// BuildOptions controls the staging area of a build.
	BuildOptions struct {
		// StagingBase is the parent of the staging directory. Empty means the
		// system temporary directory.
		StagingBase string
		// KeepStaging keeps the staging directory after a successful build.
		// It is always kept after a failure.
		KeepStaging bool
	}

	// Result is the outcome of Build.
	Result struct {
		Descriptor naming.Descriptor
		Report     *pipeline.Report
		Artifacts  []artifact.Artifact
		// StagingDir is empty when the staging area was removed.
		StagingDir string
	}
)

func (e *Env) defaults() {
	if e.Logger == nil {
		e.Logger = log.New(io.Discard)
	}
	if e.Source == nil {
		e.Source = osfs.New("/")
	}
	if e.Now == nil {
		e.Now = time.Now
	}
}

func (e *Env) warnRename(format string) naming.WarnFunc {
	return func(raw, converted string) {
		e.Logger.Warn("Package names can only include lowercase letters, numbers, dots, plus signs and dashes",
			"format", format, "name", raw, "converted", converted)
	}
}

// Build runs every stage of pk in a new staging area. The staging area is
// removed after success unless opts.KeepStaging is set, and kept after a
// failure so the generated files can be inspected.
func Build(ctx context.Context, pk Packager, opts BuildOptions, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	area, err := staging.New(opts.StagingBase)
	if err != nil {
		return nil, err
	}
	st := &pipeline.State{Staging: area, Descriptor: pk.Describe()}
	res := &Result{Descriptor: st.Descriptor, StagingDir: area.Root()}
	logger.Info("Building package", "format", pk.ID(), "name", st.Descriptor.SafeName,
		"version", st.Descriptor.Version, "arch", st.Descriptor.Architecture, "staging", area.Root())

	driver := pipeline.New(logger, pk.Stages()...)
	res.Report, err = driver.Run(ctx, st)
	res.Artifacts = st.Artifacts
	if err != nil {
		logger.Warn("Staging directory kept for inspection", "path", area.Root())
		return res, fmt.Errorf("build %s package: %w", pk.ID(), err)
	}

	if !opts.KeepStaging {
		if err := area.Destroy(); err != nil {
			logger.Warn("Failed to remove staging directory", "path", area.Root(), "error", err)
		} else {
			res.StagingDir = ""
		}
	}
	return res, nil
}
