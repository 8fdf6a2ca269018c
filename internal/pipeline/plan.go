// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"slices"

	"github.com/invowk/nativepack/internal/artifact"
)

const (
	// StageManifest generates and writes AndroidManifest.xml.
	StageManifest Stage = "manifest"
	// StageResources compiles and links resources.
	StageResources Stage = "resources"
	// StageEmbed places native libraries under lib/<abi>/.
	StageEmbed Stage = "embed"
	// StageAlign aligns archive entries.
	StageAlign Stage = "align"
	// StageSign signs the aligned archive.
	StageSign Stage = "sign"
	// StageBundle re-lays the signed archive into a module and runs bundletool.
	StageBundle Stage = "bundle"
)

var archiveStages = []Stage{StageManifest, StageResources, StageEmbed, StageAlign, StageSign}

type (
	// Stage names one step of the pipeline.
	Stage string

	// Artifact is a file produced by a stage.
	Artifact = artifact.Artifact
)

// String returns the stage name.
func (s Stage) String() string { return string(s) }

// Plan returns the ordered stages a build of format runs. It is the only
// place the output format selects behavior.
func Plan(format OutputFormat) []Stage {
	stages := slices.Clone(archiveStages)
	if format == FormatBundle {
		stages = append(stages, StageBundle)
	}
	return stages
}

// protoFormat reports whether stages end in bundle assembly, which needs
// resources linked as protobuf.
func protoFormat(stages []Stage) bool {
	return slices.Contains(stages, StageBundle)
}
