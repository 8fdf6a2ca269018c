// SPDX-License-Identifier: MPL-2.0

package align

import (
	"context"
	"strconv"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/proc"
)

// ToolAligner aligns archives with the SDK zipalign binary.
type ToolAligner struct {
	Runner   proc.Runner
	Zipalign proc.Tool
	// Alignment is the byte boundary. Zero means DefaultAlignment.
	Alignment int
	// PageAlignLibs additionally aligns shared libraries to 16KiB pages (-P 16).
	PageAlignLibs bool
}

// Args returns the zipalign arguments that align in into out.
func (a ToolAligner) Args(in, out string) []string {
	alignment := a.Alignment
	if alignment <= 0 {
		alignment = DefaultAlignment
	}
	args := []string{"-f"}
	if a.PageAlignLibs {
		args = append(args, "-P", "16")
	}
	return append(args, strconv.Itoa(alignment), in, out)
}

// Align implements Aligner. zipalign cannot rewrite in place, so it always
// writes to a temporary file that then replaces out.
func (a ToolAligner) Align(ctx context.Context, in, out string) (artifact.Artifact, error) {
	err := replaceFile(out, func(tmp string) error {
		_, err := a.Runner.Run(ctx, a.Zipalign.Command(a.Args(in, tmp)...))
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return artifact.Artifact{}, err
		}
		return artifact.Artifact{}, &Failure{Input: in, Err: err}
	}
	return artifact.New(out, artifact.TagAligned), nil
}
