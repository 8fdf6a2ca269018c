// SPDX-License-Identifier: MPL-2.0

// Package artifact defines the value each packaging stage hands to the next:
// a filesystem path plus the tag of the stage that produced it.
package artifact

import (
	"errors"
	"fmt"
)

const (
	// TagManifest marks a written AndroidManifest.xml.
	TagManifest Tag = "manifest"
	// TagResourceCompiled marks one aapt2 .flat output.
	TagResourceCompiled Tag = "resource-compiled"
	// TagLinked marks the archive produced by aapt2 link.
	TagLinked Tag = "linked"
	// TagEmbedded marks the archive with native libraries added, not yet aligned.
	TagEmbedded Tag = "unaligned"
	// TagAligned marks a zip-aligned archive.
	TagAligned Tag = "aligned"
	// TagSigned marks a signed archive.
	TagSigned Tag = "signed"
	// TagBundleModule marks a re-zipped bundle module.
	TagBundleModule Tag = "bundle-module"
	// TagBundle marks an assembled app bundle.
	TagBundle Tag = "bundle"
)

// ErrInvalidTag is the sentinel error wrapped by InvalidTagError.
var ErrInvalidTag = errors.New("invalid artifact tag")

type (
	// Tag names the stage that produced an Artifact.
	Tag string

	// Artifact is a stage output.
	Artifact struct {
		Path string
		Tag  Tag
	}

	// InvalidTagError is returned when a Tag is not one of the known stage tags.
	InvalidTagError struct {
		Value Tag
	}
)

// New returns an Artifact for path tagged with tag.
func New(path string, tag Tag) Artifact {
	return Artifact{Path: path, Tag: tag}
}

// String returns "tag:path".
func (a Artifact) String() string {
	return fmt.Sprintf("%s:%s", a.Tag, a.Path)
}

// String returns the string representation of the Tag.
func (t Tag) String() string { return string(t) }

// Validate returns nil if the tag is known, or an error wrapping ErrInvalidTag.
func (t Tag) Validate() error {
	switch t {
	case TagManifest, TagResourceCompiled, TagLinked, TagEmbedded,
		TagAligned, TagSigned, TagBundleModule, TagBundle:
		return nil
	default:
		return &InvalidTagError{Value: t}
	}
}

// Error implements the error interface.
func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("invalid artifact tag %q", e.Value)
}

// Unwrap returns ErrInvalidTag so callers can use errors.Is for classification.
func (e *InvalidTagError) Unwrap() error { return ErrInvalidTag }

var (
	// ErrMissing is the sentinel for a required input that does not exist: a
	// target architecture without a library, or a stage output that was never
	// written.
	ErrMissing = errors.New("missing artifact")

	// ErrIO is the sentinel for filesystem failures not classified otherwise.
	ErrIO = errors.New("i/o failure")
)
