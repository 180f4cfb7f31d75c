// SPDX-License-Identifier: MPL-2.0

// Package naming maps project identity to the sanitized names, versions and
// architectures each package format expects. Everything here is pure.
package naming

import (
	"regexp"
	"strings"

	"github.com/sunpkg/sunpkg/internal/hostinfo"
	"github.com/sunpkg/sunpkg/pkg/project"
)

// DefaultFMRITimestamp is the fixed timestamp component of every FMRI.
// It is a placeholder rather than the build time; override it through the
// ips.fmri_timestamp setting.
const DefaultFMRITimestamp = "20160226T100948Z"

const (
	ArchIntel = "i386"
	ArchSparc = "sparc"
)

var (
	safeNamePattern = regexp.MustCompile(`\A[a-z0-9.+\-]+\z`)
	unsafeRun       = regexp.MustCompile(`[^a-z0-9.+\-]+`)
	nonDigit        = regexp.MustCompile(`[^0-9]`)
)

type (
	// WarnFunc is told about every name that had to be converted.
	WarnFunc func(raw, converted string)

	// Descriptor is the normalized identity of one package build.
	Descriptor struct {
		SafeName     string
		Version      string
		Iteration    string
		Architecture string
		// FMRI is only meaningful for IPS packages.
		FMRI string
	}
)

// SafeBaseName returns raw unchanged when it consists only of lowercase
// letters, digits, dots, plus signs and dashes. Otherwise it lowercases raw,
// collapses every run of other characters into one dash and reports the
// conversion through warn (which may be nil).
func SafeBaseName(raw string, warn WarnFunc) string {
	if safeNamePattern.MatchString(raw) {
		return raw
	}
	converted := unsafeRun.ReplaceAllString(strings.ToLower(raw), "-")
	if warn != nil {
		warn(raw, converted)
	}
	return converted
}

// Architecture resolves the package architecture for the host.
func Architecture(h hostinfo.Info) string {
	switch {
	case h.IsIntel():
		return ArchIntel
	case h.IsSparc():
		return ArchSparc
	default:
		return h.Machine()
	}
}

// FMRI builds the IPS fault management resource identifier:
//
//	{safeName}@{v},{v}-{iteration}:{timestamp}
//
// where v joins the second and third numeric components of buildVersion
// with a dot. buildVersion is split on every non-digit character; empty
// fields are kept except at the end, so "1..2" yields ["1" "" "2"].
func FMRI(safeName, buildVersion, iteration, timestamp string) string {
	v := strings.Join(versionComponents(buildVersion, 1, 3), ".")
	return safeName + "@" + v + "," + v + "-" + iteration + ":" + timestamp
}

func versionComponents(version string, from, to int) []string {
	fields := nonDigit.Split(version, -1)
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	if from >= len(fields) {
		return nil
	}
	if to > len(fields) {
		to = len(fields)
	}
	return fields[from:to]
}

// PkgmkVersion is the VERSION value handed to pkgmk.
func PkgmkVersion(version, iteration string) string {
	return version + "-" + iteration
}

// SolarisPackageName is the file name of an SVR4 datastream artifact.
func SolarisPackageName(safeName, version, iteration, arch string) string {
	return safeName + "-" + PkgmkVersion(version, iteration) + "." + arch + ".solaris"
}

// Describe derives the descriptor for p on host h. It is recomputed on every
// call and never cached.
func Describe(p *project.Project, h hostinfo.Info, fmriTimestamp string, warn WarnFunc) Descriptor {
	if fmriTimestamp == "" {
		fmriTimestamp = DefaultFMRITimestamp
	}
	safe := SafeBaseName(p.PackageName(), warn)
	iteration := p.BuildIteration()
	return Descriptor{
		SafeName:     safe,
		Version:      p.Version,
		Iteration:    iteration,
		Architecture: Architecture(h),
		FMRI:         FMRI(safe, p.Version, iteration, fmriTimestamp),
	}
}

// SolarisPackageName is the SVR4 artifact file name for d.
func (d Descriptor) SolarisPackageName() string {
	return SolarisPackageName(d.SafeName, d.Version, d.Iteration, d.Architecture)
}

// PkgmkVersion is the VERSION value for d.
func (d Descriptor) PkgmkVersion() string {
	return PkgmkVersion(d.Version, d.Iteration)
}
