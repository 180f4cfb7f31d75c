// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/sunpkg/sunpkg/internal/artifact"
	"github.com/sunpkg/sunpkg/internal/issue"
	"github.com/sunpkg/sunpkg/internal/pipeline"
	"github.com/sunpkg/sunpkg/internal/publish"
	"github.com/sunpkg/sunpkg/internal/render"
	"github.com/sunpkg/sunpkg/internal/staging"
	"github.com/sunpkg/sunpkg/internal/toolexec"
	"github.com/sunpkg/sunpkg/pkg/project"
)

// issueFor maps an error to the catalog entry that explains it, or 0.
func issueFor(err error) issue.Id {
	var (
		ae  *issue.ActionableError
		te  *toolexec.ToolError
		re  *render.Error
		pe  *publish.PublishError
		nop issue.Id
	)
	switch {
	case errors.As(err, &ae) && ae.IssueID != nop:
		return ae.IssueID
	case errors.Is(err, project.ErrInvalidProject):
		return issue.ProjectInvalidId
	case errors.Is(err, staging.ErrNotFresh):
		return issue.StagingNotFreshId
	case errors.Is(err, toolexec.ErrToolNotFound):
		return issue.ToolNotFoundId
	case errors.Is(err, toolexec.ErrToolTimeout):
		return issue.ToolTimeoutId
	case errors.As(err, &te):
		return issue.ToolFailedId
	case errors.As(err, &re):
		return issue.TemplateRenderFailedId
	case errors.Is(err, artifact.ErrInvalidArtifact):
		return issue.ArtifactInvalidId
	case errors.As(err, &pe), errors.Is(err, publish.ErrNoDistros):
		return issue.PublishFailedId
	default:
		return nop
	}
}

// actionable wraps err for display. The failing stage, when there is one,
// becomes the resource. Errors that already carry context pass through.
func actionable(operation string, err error) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ctx := issue.NewErrorContext().WithOperation(operation).WithIssue(issueFor(err))
	if stage := pipeline.FailedStage(err); stage != "" {
		ctx = ctx.WithResource("stage " + stage)
	}
	switch issueFor(err) {
	case issue.ToolNotFoundId:
		ctx = ctx.WithSuggestion("Install the packaging tools or set tools.paths in your config")
	case issue.ToolTimeoutId:
		ctx = ctx.WithSuggestion("Raise tools.timeout in your config")
	case issue.ToolFailedId:
		ctx = ctx.WithSuggestion("Re-run with --verbose to see the tool output")
	case issue.StagingNotFreshId:
		ctx = ctx.WithSuggestion("Remove the leftover staging directory or unset staging.base_dir")
	}
	return ctx.Wrap(err).BuildError()
}

// exitCode is the process exit status for err: the failing tool's own
// status when there is one, 1 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if code := toolexec.ExitCode(err); code > 0 {
		return code
	}
	return 1
}

// commandError wraps err for a RunE return value.
func commandError(operation string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := actionable(operation, err)
	return &ExitError{Code: exitCode(err), Err: wrapped}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssue prints the catalog guidance linked to err, if any.
func renderIssue(w io.Writer, err error, logger *log.Logger) {
	id := issueFor(err)
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render("dark")
	if renderErr != nil {
		logger.Warn("Failed to render issue catalog entry", "issue", id, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}
