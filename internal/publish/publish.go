// SPDX-License-Identifier: MPL-2.0

// Package publish uploads finished artifacts to remote repositories, once per
// distribution channel.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sunpkg/sunpkg/internal/artifact"
)

// Failure policies.
const (
	// PolicyFailFast stops at the first validation or upload failure.
	PolicyFailFast Policy = "fail-fast"
	// PolicyBestEffort keeps going and reports every failure at the end.
	// An artifact whose upload failed on any channel is not reported to the
	// callback.
	PolicyBestEffort Policy = "best-effort"
)

// ErrNoDistros is returned when no distribution channel is configured.
var ErrNoDistros = errors.New("no distributions configured")

type (
	// Policy decides what happens after a failed channel.
	Policy string

	// Upload is one artifact headed for one channel.
	Upload struct {
		Repo     string
		Distro   string
		Artifact artifact.Artifact
		Metadata *artifact.Metadata
	}

	// Uploader sends an artifact to a remote repository.
	Uploader interface {
		Upload(ctx context.Context, u Upload) error
	}

	// PublishError is an upload rejected by the remote side.
	PublishError struct {
		Artifact string
		Distro   string
		Err      error
	}

	// Publisher validates artifacts and uploads each to every distribution.
	Publisher struct {
		Repo     string
		Distros  []string
		Uploader Uploader
		Policy   Policy
		Logger   *log.Logger
	}
)

func (e *PublishError) Error() string {
	return fmt.Sprintf("upload %s to %s: %v", e.Artifact, e.Distro, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// ParsePolicy accepts "fail-fast", "best-effort" or "" (fail-fast).
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.TrimSpace(strings.ToLower(s))); p {
	case "":
		return PolicyFailFast, nil
	case PolicyFailFast, PolicyBestEffort:
		return p, nil
	default:
		return "", fmt.Errorf("unknown publish policy %q (want %s or %s)", s, PolicyFailFast, PolicyBestEffort)
	}
}

// ParseDistros splits a comma-separated distribution list, trimming spaces and
// dropping empty entries.
func ParseDistros(s string) []string {
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Publish validates each artifact, uploads it to every distribution and then
// calls onUploaded (when non-nil) once for the artifact. Failures are handled
// according to the publisher's policy; under best-effort every failure is
// returned joined.
func (p *Publisher) Publish(ctx context.Context, artifacts []artifact.Artifact, onUploaded func(artifact.Artifact)) error {
	logger := p.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if len(p.Distros) == 0 {
		return ErrNoDistros
	}
	policy := p.Policy
	if policy == "" {
		policy = PolicyFailFast
	}

	logger.Info("Starting publisher", "repository", p.Repo, "distros", strings.Join(p.Distros, ","), "policy", policy)

	var errs []error
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		logger.Debug("Validating artifact", "artifact", a.Name)
		md, err := artifact.Validate(a)
		if err != nil {
			if policy == PolicyFailFast {
				return err
			}
			logger.Error("Skipping invalid artifact", "artifact", a.Name, "error", err)
			errs = append(errs, err)
			continue
		}

		uploaded := true
		for _, distro := range p.Distros {
			logger.Info("Uploading artifact", "artifact", a.Name, "distro", distro, "repository", p.Repo)
			err := p.Uploader.Upload(ctx, Upload{Repo: p.Repo, Distro: distro, Artifact: a, Metadata: md})
			if err == nil {
				continue
			}
			perr := &PublishError{Artifact: a.Name, Distro: distro, Err: err}
			if policy == PolicyFailFast {
				return perr
			}
			logger.Error("Upload failed", "artifact", a.Name, "distro", distro, "error", err)
			errs = append(errs, perr)
			uploaded = false
		}

		if uploaded && onUploaded != nil {
			onUploaded(a)
		}
	}
	return errors.Join(errs...)
}
