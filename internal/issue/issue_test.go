// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func allIds() []Id {
	return []Id{
		SDKNotFoundId,
		BuildToolsNotFoundId,
		PlatformNotFoundId,
		JavaNotFoundId,
		BundletoolNotFoundId,
		ProjectNotFoundId,
		ProjectParseErrorId,
		ConfigLoadFailedId,
		ManifestInvalidId,
		ResourceStageFailedId,
		NativeLibraryMissingId,
		LibraryHookFailedId,
		AlignmentFailedId,
		KeystoreUnavailableId,
		SigningRejectedId,
		BundleAssemblyFailedId,
		ModuleCycleId,
		PermissionDeniedId,
	}
}

func plainRender(t *testing.T) {
	t.Helper()
	originalRender := render
	t.Cleanup(func() { render = originalRender })
	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}
}

func TestId_Constants(t *testing.T) {
	seen := make(map[Id]bool)
	for _, id := range allIds() {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if SDKNotFoundId != 1 {
		t.Errorf("SDKNotFoundId = %d, want 1", SDKNotFoundId)
	}
}

func TestIssue_Id(t *testing.T) {
	issue := Get(SDKNotFoundId)
	if issue == nil {
		t.Fatal("Get(SDKNotFoundId) returned nil")
	}
	if issue.Id() != SDKNotFoundId {
		t.Errorf("issue.Id() = %d, want %d", issue.Id(), SDKNotFoundId)
	}
}

func TestIssue_ExtLinks_Clone(t *testing.T) {
	issue := Get(AlignmentFailedId)
	links := issue.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected alignment issue to carry an external link")
	}
	original := links[0]
	links[0] = "modified"
	if issue.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}
	if issue.DocLinks() != nil {
		t.Errorf("DocLinks() = %v, want nil", issue.DocLinks())
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{SDKNotFoundId, false, "Android SDK not found"},
		{BuildToolsNotFoundId, false, "Build tools not found"},
		{PlatformNotFoundId, false, "platform not found"},
		{JavaNotFoundId, false, "Java not found"},
		{BundletoolNotFoundId, false, "bundletool not found"},
		{ProjectNotFoundId, false, "No project file found"},
		{ProjectParseErrorId, false, "Failed to parse the project file"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{ManifestInvalidId, false, "Invalid manifest"},
		{ResourceStageFailedId, false, "aapt2 failed"},
		{NativeLibraryMissingId, false, "Native library missing"},
		{LibraryHookFailedId, false, "Library build hook failed"},
		{AlignmentFailedId, false, "Alignment failed"},
		{KeystoreUnavailableId, false, "Keystore unavailable"},
		{SigningRejectedId, false, "rejected the archive"},
		{BundleAssemblyFailedId, false, "Bundle assembly failed"},
		{ModuleCycleId, false, "Module dependency cycle"},
		{PermissionDeniedId, false, "Permission denied"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain '%s'", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()

	if len(issues) != len(allIds()) {
		t.Fatalf("Values() returned %d issues, want %d", len(issues), len(allIds()))
	}
	for i, issue := range issues {
		if issue.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want sorted ids", i, issue.Id())
		}
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	plainRender(t)

	testIssue := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue\n\nThis is a test.",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "See also") {
		t.Error("Render() with links should contain 'See also'")
	}
	docIdx := strings.Index(rendered, "- <https://docs.example.com>")
	extIdx := strings.Index(rendered, "- <https://external.example.com>")
	if docIdx < 0 || extIdx < 0 || docIdx > extIdx {
		t.Errorf("links should be listed doc first, got:\n%s", rendered)
	}
}

func TestIssue_Render_NoLinks(t *testing.T) {
	plainRender(t)

	testIssue := &Issue{
		id:    Id(9998),
		mdMsg: "# Test Issue\n\nNo links here.",
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	plainRender(t)

	for _, issue := range Values() {
		if issue.MarkdownMsg() == "" {
			t.Errorf("Issue %d has empty MarkdownMsg", issue.Id())
		}
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("Issue %d rendered to empty string", issue.Id())
		}
	}
}

func TestIssue_Render_Glamour(t *testing.T) {
	rendered, err := Get(NativeLibraryMissingId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "Native library missing") {
		t.Errorf("glamour output lost the heading:\n%s", rendered)
	}
}
