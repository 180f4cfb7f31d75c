// SPDX-License-Identifier: MPL-2.0

package render

import (
	"errors"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		data    any
		want    string
		wantErr bool
	}{
		{
			name: "map data",
			text: "set name=pkg.fmri value={{ .FMRI }}",
			data: map[string]any{"FMRI": "app@1.2,1.2-1:20160226T100948Z"},
			want: "set name=pkg.fmri value=app@1.2,1.2-1:20160226T100948Z",
		},
		{
			name: "sprig helper",
			text: `{{ .Dir | trimPrefix "/" | regexQuoteMeta }}`,
			data: map[string]any{"Dir": "/opt/app.d"},
			want: `opt/app\.d`,
		},
		{
			name:    "missing key",
			text:    "{{ .Missing }}",
			data:    map[string]any{"Name": "app"},
			wantErr: true,
		},
		{
			name:    "parse error",
			text:    "{{ .Name ",
			data:    map[string]any{"Name": "app"},
			wantErr: true,
		},
		{
			name:    "disallowed helper",
			text:    `{{ env "HOME" }}`,
			data:    map[string]any{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Render("gen.manifestfile", tt.text, tt.data)
			if tt.wantErr {
				var re *Error
				if !errors.As(err, &re) {
					t.Fatalf("Render() error = %v, want *render.Error", err)
				}
				if re.Template != "gen.manifestfile" {
					t.Errorf("Error.Template = %q", re.Template)
				}
				return
			}
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFuncsExcludesNonDeterministicHelpers(t *testing.T) {
	t.Parallel()

	funcs := Funcs()
	for _, name := range []string{"now", "env", "randAlpha", "uuidv4", "date"} {
		if _, ok := funcs[name]; ok {
			t.Errorf("Funcs() should not expose %q", name)
		}
	}
	if _, ok := funcs["trimPrefix"]; !ok {
		t.Error("Funcs() should expose trimPrefix")
	}
}
