// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is the error shape shown to sunpkg users: the operation
	// that failed, the project file, stage or artifact it concerned, what to
	// try next and the catalog entry with longer guidance.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("load project").
	//		WithResource("./project.cue").
	//		WithIssue(issue.ProjectInvalidId).
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		Operation   string
		Resource    string
		Suggestions []string
		Cause       error
		IssueID     Id
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		draft ActionableError
	}
)

// NewErrorContext starts an empty ActionableError builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error with its suggestions as a bullet list. Verbose
// output adds the numbered cause chain; joined causes, such as the failures
// collected by a best-effort publish, are listed one per line.
func (e *ActionableError) Format(verbose bool) string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		sb.WriteString("\n")
		for _, s := range e.Suggestions {
			sb.WriteString("\n  • " + s)
		}
	}

	if !verbose {
		if e.IssueID != 0 {
			sb.WriteString("\n\nRe-run with --verbose for detailed guidance.")
		}
		return sb.String()
	}

	if e.Cause != nil {
		sb.WriteString("\n\nError chain:")
		for i, line := range causeChain(e.Cause) {
			fmt.Fprintf(&sb, "\n  %d. %s", i+1, line)
		}
	}
	return sb.String()
}

// causeChain flattens err into display lines, following both single and
// joined wrapping.
func causeChain(err error) []string {
	var lines []string
	for err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, member := range joined.Unwrap() {
				lines = append(lines, "- "+member.Error())
			}
			return lines
		}
		lines = append(lines, err.Error())
		err = errors.Unwrap(err)
	}
	return lines
}

// WithOperation names what was being attempted, as a verb phrase.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.draft.Operation = op
	return c
}

// WithResource names the file, stage or artifact involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.draft.Resource = res
	return c
}

// WithSuggestion appends a hint. It may be called repeatedly.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.draft.Suggestions = append(c.draft.Suggestions, sug)
	return c
}

// WithIssue links the catalog entry explaining the failure.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.draft.IssueID = id
	return c
}

// Wrap records the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.draft.Cause = err
	return c
}

// Build returns the accumulated error, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.draft.Operation == "" {
		return nil
	}
	ae := c.draft
	ae.Suggestions = append([]string(nil), c.draft.Suggestions...)
	return &ae
}

// BuildError is Build typed as error, so a missing operation yields a nil
// interface rather than a typed nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
