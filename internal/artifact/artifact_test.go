// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"testing"
)

func TestTagValidate(t *testing.T) {
	t.Parallel()

	for _, tag := range []Tag{TagManifest, TagResourceCompiled, TagLinked, TagEmbedded, TagAligned, TagSigned, TagBundleModule, TagBundle} {
		if err := tag.Validate(); err != nil {
			t.Errorf("Tag(%q).Validate() = %v", tag, err)
		}
	}

	err := Tag("zipped").Validate()
	if !errors.Is(err, ErrInvalidTag) {
		t.Errorf("expected ErrInvalidTag, got %v", err)
	}
}

func TestArtifactString(t *testing.T) {
	t.Parallel()

	a := New("/b/aligned.intermediate", TagAligned)
	if a.String() != "aligned:/b/aligned.intermediate" {
		t.Errorf("String() = %q", a.String())
	}
}
