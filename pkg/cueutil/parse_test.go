// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Widget: {
	name:  string & =~"^[a-z]+$"
	count: int & >0 | *1
	tags?: [...string]
}
`

type widget struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		data      string
		wantErr   string
		wantCount int
	}{
		{name: "defaults applied", data: `name: "gear"`, wantCount: 1},
		{name: "explicit count", data: "name: \"gear\"\ncount: 3", wantCount: 3},
		{name: "bad name", data: `name: "Gear"`, wantErr: "name"},
		{name: "zero count", data: "name: \"gear\"\ncount: 0", wantErr: "count"},
		{name: "syntax error", data: `name: "gear`, wantErr: "widget.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := ParseAndDecode[widget]([]byte(testSchema), []byte(tt.data), "#Widget", WithFilename("widget.cue"))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Value.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", res.Value.Count, tt.wantCount)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 10), 10, "a.cue"); err != nil {
		t.Errorf("size at limit should pass: %v", err)
	}
	if err := CheckFileSize(make([]byte, 11), 10, "a.cue"); err == nil {
		t.Error("size over limit should fail")
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	got := formatPath([]string{"modules", "0", "depends_on", "1"})
	if got != "modules[0].depends_on[1]" {
		t.Errorf("formatPath() = %q", got)
	}
	if formatPath(nil) != "" {
		t.Error("empty path should format to empty string")
	}
}
