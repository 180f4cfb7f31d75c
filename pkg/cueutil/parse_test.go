// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Package: {
	name:         string & !=""
	iteration:    int & >0
	arch?:        "i386" | "sparc"
	description?: string
}
`

type testPackage struct {
	Name        string `json:"name"`
	Iteration   int    `json:"iteration"`
	Arch        string `json:"arch,omitempty"`
	Description string `json:"description,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid data decodes", func(t *testing.T) {
		t.Parallel()

		got, err := ParseAndDecode[testPackage]([]byte(testSchema), []byte(`
name: "myapp"
iteration: 2
arch: "sparc"
`), "#Package")
		if err != nil {
			t.Fatalf("ParseAndDecode() error = %v", err)
		}
		if got.Name != "myapp" || got.Iteration != 2 || got.Arch != "sparc" {
			t.Errorf("ParseAndDecode() = %+v", got)
		}
	})

	t.Run("constraint violation names the file and field", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testPackage]([]byte(testSchema), []byte(`
name: "myapp"
iteration: 0
`), "#Package", WithFilename("project.cue"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "project.cue") || !strings.Contains(err.Error(), "iteration") {
			t.Errorf("error should mention file and field, got: %v", err)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testPackage]([]byte(testSchema), []byte(`name: "x`), "#Package")
		if err == nil {
			t.Fatal("expected syntax error")
		}
	})

	t.Run("missing fields allowed when not concrete", func(t *testing.T) {
		t.Parallel()

		if _, err := Unify([]byte(testSchema), []byte(`arch: "i386"`), "#Package", WithConcrete(false)); err != nil {
			t.Errorf("Unify() error = %v", err)
		}
	})

	t.Run("file size limit", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testPackage]([]byte(testSchema), []byte(`name: "myapp"`), "#Package", WithMaxFileSize(4))
		if err == nil || !strings.Contains(err.Error(), "byte limit") {
			t.Errorf("expected size error, got %v", err)
		}
	})

	t.Run("unknown definition", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testPackage]([]byte(testSchema), []byte(`name: "a"`), "#Missing")
		if err == nil || !strings.Contains(err.Error(), "#Missing") {
			t.Errorf("expected missing definition error, got %v", err)
		}
	})
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "x.cue") != nil {
		t.Error("FormatError(nil) should be nil")
	}

	cause := errors.New("some error")
	err := FormatError(cause, "test.cue")
	if !strings.HasPrefix(err.Error(), "test.cue: ") || !errors.Is(err, cause) {
		t.Errorf("FormatError() = %v", err)
	}
}

func TestFormatErrorFieldPaths(t *testing.T) {
	t.Parallel()

	schema := []byte("#Doc: {tools: {timeout: string}}")
	_, err := Unify(schema, []byte("tools: timeout: 5"), "#Doc", WithFilename("doc.cue"))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Unify() error = %v, want *ValidationError", err)
	}
	if ve.File != "doc.cue" {
		t.Errorf("File = %q", ve.File)
	}
	if len(ve.Fields) == 0 || !strings.Contains(ve.Fields[0].Path, "tools.timeout") || ve.Fields[0].Message == "" {
		t.Errorf("Fields = %+v, want an entry for tools.timeout", ve.Fields)
	}
	if !strings.HasPrefix(err.Error(), "doc.cue: ") {
		t.Errorf("Error() = %q, want the file name first", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"name"}, "name"},
		{[]string{"s3", "region"}, "s3.region"},
		{[]string{"exclusions", "0"}, "exclusions[0]"},
		{[]string{"extra", "1", "path"}, "extra[1].path"},
	}

	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
