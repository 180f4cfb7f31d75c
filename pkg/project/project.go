// SPDX-License-Identifier: MPL-2.0

// Package project defines the software project being packaged and loads it
// from CUE or TOML project files.
package project

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sunpkg/sunpkg/pkg/cueutil"
)

// ErrInvalidProject is the sentinel error wrapped by InvalidProjectError.
var ErrInvalidProject = errors.New("invalid project")

//go:embed project_schema.cue
var projectSchema []byte

type (
	// Project is the read-only description of the software being packaged.
	// It must not change for the duration of a build.
	Project struct {
		Name              string   `json:"name" toml:"name"`
		FriendlyName      string   `json:"friendly_name,omitempty" toml:"friendly_name"`
		Version           string   `json:"version" toml:"version"`
		Iteration         int      `json:"iteration" toml:"iteration"`
		InstallDir        string   `json:"install_dir" toml:"install_dir"`
		Description       string   `json:"description" toml:"description"`
		Maintainer        string   `json:"maintainer" toml:"maintainer"`
		PackageScriptsDir string   `json:"package_scripts_dir,omitempty" toml:"package_scripts_dir"`
		ExtraPackageFiles []string `json:"extra_package_files" toml:"extra_package_files"`
		Exclusions        []string `json:"exclusions" toml:"exclusions"`
	}

	// InvalidProjectError names the field that failed validation.
	InvalidProjectError struct {
		Field  string
		Reason string
	}
)

func (e *InvalidProjectError) Error() string {
	return fmt.Sprintf("invalid project: %s: %s", e.Field, e.Reason)
}

func (e *InvalidProjectError) Unwrap() error { return ErrInvalidProject }

// Load reads a project file. Files ending in .toml are decoded as TOML,
// everything else is treated as CUE and validated against the project schema.
// Relative package_scripts_dir values resolve against the file's directory
// and are always returned absolute.
func Load(filename string) (*Project, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}

	var p *Project
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		p, err = ParseTOML(data)
	} else {
		p, err = ParseCUE(data, filename)
	}
	if err != nil {
		return nil, err
	}

	if p.PackageScriptsDir != "" && !filepath.IsAbs(p.PackageScriptsDir) {
		abs, err := filepath.Abs(filename)
		if err != nil {
			return nil, fmt.Errorf("resolve project file path: %w", err)
		}
		p.PackageScriptsDir = filepath.Join(filepath.Dir(abs), p.PackageScriptsDir)
	}
	return p, nil
}

// ParseCUE decodes and validates a CUE project definition.
func ParseCUE(data []byte, filename string) (*Project, error) {
	p, err := cueutil.ParseAndDecode[Project](projectSchema, data, "#Project", cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseTOML decodes and validates a TOML project definition.
func ParseTOML(data []byte) (*Project, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, "project.toml"); err != nil {
		return nil, err
	}

	p := &Project{Iteration: 1}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the invariants every packager relies on.
func (p *Project) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return &InvalidProjectError{Field: "name", Reason: "must not be empty"}
	case strings.TrimSpace(p.Version) == "":
		return &InvalidProjectError{Field: "version", Reason: "must not be empty"}
	case p.Iteration < 1:
		return &InvalidProjectError{Field: "iteration", Reason: "must be a positive number"}
	case !path.IsAbs(p.InstallDir):
		return &InvalidProjectError{Field: "install_dir", Reason: fmt.Sprintf("%q is not an absolute path", p.InstallDir)}
	case path.Clean(p.InstallDir) == "/":
		return &InvalidProjectError{Field: "install_dir", Reason: "must not be the filesystem root"}
	}
	for i, f := range p.ExtraPackageFiles {
		if !path.IsAbs(f) {
			return &InvalidProjectError{Field: fmt.Sprintf("extra_package_files[%d]", i), Reason: fmt.Sprintf("%q is not an absolute path", f)}
		}
	}
	return nil
}

// PackageName is the raw, unnormalized package name.
func (p *Project) PackageName() string {
	return p.Name
}

// DisplayName returns the friendly name, falling back to the package name.
func (p *Project) DisplayName() string {
	if p.FriendlyName != "" {
		return p.FriendlyName
	}
	return p.Name
}

// BuildIteration returns the iteration as it appears in version strings.
func (p *Project) BuildIteration() string {
	return strconv.Itoa(p.Iteration)
}
