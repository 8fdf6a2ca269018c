// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

var errNoBuildTools = errors.New("no build-tools installed")

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "locate Android SDK"},
			want: "failed to locate Android SDK",
		},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "locate build-tools", Resource: "/sdk/build-tools"},
			want: "failed to locate build-tools: /sdk/build-tools",
		},
		{
			name: "with cause",
			err:  &ActionableError{Operation: "load configuration", Cause: errors.New("build.jobs: out of range")},
			want: "failed to load configuration: build.jobs: out of range",
		},
		{
			name: "full",
			err: &ActionableError{
				Operation: "locate build-tools",
				Resource:  "/sdk/build-tools",
				Cause:     errNoBuildTools,
			},
			want: "failed to locate build-tools: /sdk/build-tools: no build-tools installed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("locate build-tools").
		Wrap(fmt.Errorf("scan: %w", errNoBuildTools)).
		BuildError()

	if !errors.Is(err, errNoBuildTools) {
		t.Error("errors.Is should reach the wrapped sentinel")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("errors.As should find the ActionableError")
	}
	if (&ActionableError{Operation: "x"}).Unwrap() != nil {
		t.Error("Unwrap() without a cause should be nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	base := &ActionableError{
		Operation:   "locate Android SDK",
		Suggestions: []string{"Set ANDROID_HOME", "Run 'nativepack sdk' to check"},
		Cause:       fmt.Errorf("scan build-tools: %w", errNoBuildTools),
	}

	tests := []struct {
		name     string
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "suggestions without chain",
			verbose:  false,
			contains: []string{"failed to locate Android SDK", "• Set ANDROID_HOME", "• Run 'nativepack sdk' to check"},
			excludes: []string{"Error chain:"},
		},
		{
			name:     "verbose lists the chain",
			verbose:  true,
			contains: []string{"Error chain:", "1. scan build-tools: no build-tools installed", "2. no build-tools installed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := base.Format(tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Format() missing %q in:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("Format() should not contain %q in:\n%s", unwanted, got)
				}
			}
		})
	}

	plain := &ActionableError{Operation: "sign archive"}
	if got := plain.Format(true); got != "failed to sign archive" {
		t.Errorf("Format() without extras = %q", got)
	}
	if plain.HasSuggestions() || !base.HasSuggestions() {
		t.Error("HasSuggestions() mismatch")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if ae := NewErrorContext().WithResource("/sdk").Build(); ae != nil {
		t.Errorf("Build() without operation = %v, want nil", ae)
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil interface", err)
	}

	ae := NewErrorContext().
		WithOperation("locate bundletool").
		WithResource("$PATH").
		WithSuggestion("Set BUNDLETOOL_PATH").
		WithSuggestions("Set sdk.bundletool", "Build an APK instead").
		Wrap(errNoBuildTools).
		Build()
	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Operation != "locate bundletool" || ae.Resource != "$PATH" {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 3 {
		t.Errorf("Suggestions = %v, want 3 entries", ae.Suggestions)
	}
	if !errors.Is(ae, errNoBuildTools) {
		t.Error("Build() lost the cause")
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().
		WithOperation("sign archive").
		WithResource("build/aligned.intermediate").
		WithSuggestion("Check the keystore password")

	first := ctx.Wrap(errors.New("keystore was tampered with")).Build()
	second := ctx.WithSuggestion("Regenerate the debug key").Wrap(errors.New("apksigner exited 1")).Build()

	if first.Cause.Error() == second.Cause.Error() {
		t.Error("reused builder should carry the new cause")
	}
	if len(first.Suggestions) != 1 {
		t.Errorf("earlier build changed after reuse: %v", first.Suggestions)
	}
	if len(second.Suggestions) != 2 {
		t.Errorf("second build suggestions = %v", second.Suggestions)
	}
}
