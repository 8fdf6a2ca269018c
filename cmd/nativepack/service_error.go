// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/invowk/nativepack/internal/align"
	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/bundle"
	"github.com/invowk/nativepack/internal/config"
	"github.com/invowk/nativepack/internal/dag"
	"github.com/invowk/nativepack/internal/issue"
	"github.com/invowk/nativepack/internal/libbuild"
	"github.com/invowk/nativepack/internal/manifest"
	"github.com/invowk/nativepack/internal/pipeline"
	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/sdk"
	"github.com/invowk/nativepack/internal/sign"
	"github.com/invowk/nativepack/pkg/project"
)

// ServiceError is an error the CLI layer already knows the issue catalog
// entry for. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the issue catalog entry rendered with --verbose.
	IssueID issue.Id
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// issueFor picks the catalog entry explaining err, or 0 when none applies.
func issueFor(err error) issue.Id {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.IssueID != 0 {
		return svcErr.IssueID
	}

	var notFound *proc.ToolNotFoundError
	var signFailure *sign.Failure
	switch {
	case errors.Is(err, sdk.ErrSDKNotFound):
		return issue.SDKNotFoundId
	case errors.Is(err, sdk.ErrBuildToolsNotFound):
		return issue.BuildToolsNotFoundId
	case errors.Is(err, sdk.ErrPlatformNotFound):
		return issue.PlatformNotFoundId
	case errors.As(err, &notFound):
		switch notFound.Tool {
		case "keytool", "java":
			return issue.JavaNotFoundId
		case "bundletool":
			return issue.BundletoolNotFoundId
		default:
			return issue.BuildToolsNotFoundId
		}
	case errors.Is(err, project.ErrNotFound):
		return issue.ProjectNotFoundId
	case errors.Is(err, project.ErrInvalidProject), errors.Is(err, project.ErrSecretUnset):
		return issue.ProjectParseErrorId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, dag.ErrCycle), errors.Is(err, dag.ErrUnknownDependency):
		return issue.ModuleCycleId
	case errors.Is(err, libbuild.ErrHook), errors.Is(err, libbuild.ErrInvalidHook):
		return issue.LibraryHookFailedId
	case errors.Is(err, artifact.ErrMissing):
		return issue.NativeLibraryMissingId
	case errors.As(err, &signFailure):
		if signFailure.Recoverable() {
			return issue.KeystoreUnavailableId
		}
		return issue.SigningRejectedId
	case errors.Is(err, align.ErrAlignment), errors.Is(err, align.ErrMisaligned):
		return issue.AlignmentFailedId
	case errors.Is(err, manifest.ErrManifest):
		return issue.ManifestInvalidId
	case errors.Is(err, bundle.ErrBinaryResources), errors.Is(err, bundle.ErrInvalidTransition):
		return issue.BundleAssemblyFailedId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	}

	if stage, ok := pipeline.FailedStage(err); ok {
		switch stage {
		case pipeline.StageManifest:
			return issue.ManifestInvalidId
		case pipeline.StageResources:
			return issue.ResourceStageFailedId
		case pipeline.StageEmbed:
			return issue.NativeLibraryMissingId
		case pipeline.StageAlign:
			return issue.AlignmentFailedId
		case pipeline.StageSign:
			return issue.SigningRejectedId
		case pipeline.StageBundle:
			return issue.BundleAssemblyFailedId
		}
	}
	return 0
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors list their suggestions, and the full chain with verbose.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// reportError prints err, the failed stage and, with --verbose, the issue
// catalog entry for it.
func (a *App) reportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, a.flags.verbose))
	if stage, ok := pipeline.FailedStage(err); ok {
		fmt.Fprintln(w, SubtitleStyle.Render("Failed stage: ")+CmdStyle.Render(stage.String()))
	}

	id := issueFor(err)
	if id == 0 {
		return
	}
	if !a.flags.verbose {
		fmt.Fprintln(w, SubtitleStyle.Render("Run with --verbose for troubleshooting steps."))
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	scheme := string(a.colorScheme)
	if scheme == "" {
		scheme = string(config.ColorSchemeAuto)
	}
	rendered, renderErr := entry.Render(scheme)
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}
