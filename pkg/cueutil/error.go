// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue/errors"
)

type (
	// ValidationError lists the fields of a CUE document that failed
	// unification, each addressed by a JSON-style path such as
	// "tools.paths.pkgmk" or "extra_files[2]".
	ValidationError struct {
		File   string
		Fields []FieldError
		cause  error
	}

	// FieldError is one rejected field.
	FieldError struct {
		Path    string
		Message string
	}
)

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		lines[i] = f.String()
	}
	if len(lines) == 1 {
		return e.File + ": " + lines[0]
	}
	return e.File + ": validation failed:\n  " + strings.Join(lines, "\n  ")
}

func (e *ValidationError) Unwrap() error { return e.cause }

func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// FormatError attributes err to filePath. CUE errors become a
// *ValidationError with one entry per rejected field; anything else is
// wrapped with the file name prefixed.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := errors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	ve := &ValidationError{File: filePath, cause: err}
	for _, ce := range cueErrs {
		path := formatPath(errors.Path(ce))
		msg := ce.Error()
		// Some CUE messages already start with the path.
		if path != "" {
			if rest, ok := strings.CutPrefix(msg, path); ok {
				msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			}
		}
		ve.Fields = append(ve.Fields, FieldError{Path: path, Message: msg})
	}
	return ve
}

// formatPath renders CUE's flat path selectors in JSON-path notation:
// numeric selectors after the first become [n] indexes.
func formatPath(path []string) string {
	var sb strings.Builder
	for i, sel := range path {
		if _, err := strconv.Atoi(sel); err == nil && i > 0 {
			sb.WriteString("[" + sel + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(sel)
	}
	return sb.String()
}

// CheckFileSize rejects project and config documents larger than maxSize
// before they reach the CUE evaluator.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if size := int64(len(data)); size > maxSize {
		return fmt.Errorf("%s: %d bytes exceeds the %d byte limit", filename, size, maxSize)
	}
	return nil
}
