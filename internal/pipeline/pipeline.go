// SPDX-License-Identifier: MPL-2.0

// Package pipeline runs an ordered list of build stages and stops at the first
// failure.
//
// There is no rollback and no resume: a failed run leaves the staging area as
// it was when the failing stage returned.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sunpkg/sunpkg/internal/artifact"
	"github.com/sunpkg/sunpkg/internal/naming"
	"github.com/sunpkg/sunpkg/internal/staging"
)

type (
	// State is what stages of one build share.
	State struct {
		Staging    *staging.Area
		Descriptor naming.Descriptor
		// Artifacts collects the files produced by the build.
		Artifacts []artifact.Artifact
	}

	// Stage is one named unit of work.
	Stage struct {
		Name string
		Run  func(ctx context.Context, st *State) error
	}

	// StageError attributes a failure to the stage that produced it.
	StageError struct {
		Stage string
		Err   error
	}

	// Driver executes stages in order.
	Driver struct {
		Stages []Stage
		Logger *log.Logger
	}
)

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Group runs stages in order as a single stage. The group fails as soon as a
// member fails, with the member's StageError as the cause.
func Group(name string, stages ...Stage) Stage {
	return Stage{
		Name: name,
		Run: func(ctx context.Context, st *State) error {
			for _, s := range stages {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.Run(ctx, st); err != nil {
					return &StageError{Stage: s.Name, Err: err}
				}
			}
			return nil
		},
	}
}

// New returns a driver for stages.
func New(logger *log.Logger, stages ...Stage) *Driver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Driver{Stages: stages, Logger: logger}
}

// Run executes every stage in order. On the first failure no later stage runs
// and the returned error is a *StageError naming the failed stage. A canceled
// context stops the run before the next stage starts. The report always covers
// every stage.
func (d *Driver) Run(ctx context.Context, st *State) (*Report, error) {
	report := &Report{Results: make([]StageResult, len(d.Stages))}
	for i, s := range d.Stages {
		report.Results[i] = StageResult{Name: s.Name, Outcome: Skipped}
	}

	for i, s := range d.Stages {
		if err := ctx.Err(); err != nil {
			d.Logger.Warn("Build interrupted", "before", s.Name)
			return report, fmt.Errorf("build interrupted before stage %s: %w", s.Name, err)
		}

		d.Logger.Info("Running stage", "stage", s.Name)
		start := time.Now()
		err := s.Run(ctx, st)
		res := &report.Results[i]
		res.Duration = time.Since(start)

		if err != nil {
			res.Outcome = Failed
			res.Err = err
			d.Logger.Error("Stage failed", "stage", s.Name, "error", err)
			return report, &StageError{Stage: s.Name, Err: err}
		}
		res.Outcome = Succeeded
		d.Logger.Debug("Stage finished", "stage", s.Name, "duration", res.Duration.Round(time.Millisecond))
	}
	return report, nil
}

// FailedStage returns the name of the innermost stage named by err.
func FailedStage(err error) string {
	name := ""
	for err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			break
		}
		name = se.Stage
		err = se.Err
	}
	return name
}
