// SPDX-License-Identifier: MPL-2.0

// Package render renders text templates for generated package files.
//
// Templates get a restricted set of sprig helpers and fail on any variable the
// data does not provide.
package render

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Error is returned when a template cannot be parsed or executed.
type Error struct {
	Template string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render template %s: %v", e.Template, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// String and list helpers only; nothing that reads the clock or environment.
var allowedFuncNames = map[string]struct{}{
	"trim":                   {},
	"trimAll":                {},
	"trimPrefix":             {},
	"trimSuffix":             {},
	"upper":                  {},
	"lower":                  {},
	"replace":                {},
	"contains":               {},
	"hasPrefix":              {},
	"hasSuffix":              {},
	"quote":                  {},
	"squote":                 {},
	"indent":                 {},
	"nindent":                {},
	"join":                   {},
	"split":                  {},
	"splitList":              {},
	"list":                   {},
	"first":                  {},
	"last":                   {},
	"default":                {},
	"empty":                  {},
	"regexQuoteMeta":         {},
	"regexReplaceAll":        {},
	"regexReplaceAllLiteral": {},
}

// Funcs returns the helper functions available to templates.
func Funcs() template.FuncMap {
	funcs := template.FuncMap{}
	for name, fn := range sprig.TxtFuncMap() {
		if _, ok := allowedFuncNames[name]; ok {
			funcs[name] = fn
		}
	}
	return funcs
}

// Parse parses text as a template called name.
func Parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(Funcs()).Parse(text)
	if err != nil {
		return nil, &Error{Template: name, Err: err}
	}
	return tmpl, nil
}

// Render parses and executes text with data. Map data must contain every key
// the template references.
func Render(name, text string, data any) (string, error) {
	tmpl, err := Parse(name, text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", &Error{Template: name, Err: err}
	}
	return sb.String(), nil
}
