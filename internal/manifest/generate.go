// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

// Input carries the build fields the manifest depends on.
type Input struct {
	PackageID   string
	Label       string
	VersionName string
	VersionCode uint32
	MinSDK      int
	TargetSDK   int
	Permissions []string
	Features    []string
	// LibName is the shared library file name, e.g. "libgame.so".
	LibName    string
	Debuggable bool
	// OverridePath names a user manifest to start from. Empty, or a path
	// that does not exist, means a default manifest is generated.
	OverridePath string
	// Split names a bundle feature module. Split manifests get an
	// install-time dist:module and no launcher activity.
	Split string
}

// Generate returns the manifest for in: the override file with build fields
// injected when one exists, otherwise a default NativeActivity manifest.
func Generate(in Input) (*Manifest, error) {
	m := &Manifest{}
	if in.OverridePath != "" {
		loaded, err := Read(in.OverridePath)
		switch {
		case err == nil:
			m = loaded
		case errors.Is(err, fs.ErrNotExist):
			m.Notes = append(m.Notes, fmt.Sprintf("manifest override %s not found; generating default manifest", in.OverridePath))
		default:
			return nil, err
		}
	}
	inject(m, in)
	return m, nil
}

// LibBaseName strips the "lib" prefix and ".so" suffix from a shared
// library file name, yielding the value NativeActivity expects.
func LibBaseName(libName string) string {
	return strings.TrimSuffix(strings.TrimPrefix(libName, "lib"), ".so")
}

func inject(m *Manifest, in Input) {
	m.XMLNSAndroid = AndroidNamespace

	switch {
	case m.Package == "":
		m.Package = in.PackageID
	case m.Package != in.PackageID:
		m.Notes = append(m.Notes, fmt.Sprintf("manifest package %q replaced by build package %q", m.Package, in.PackageID))
		m.Package = in.PackageID
	}

	if in.Split != "" {
		injectSplit(m, in.Split)
	}

	m.VersionCode = strconv.FormatUint(uint64(in.VersionCode), 10)
	m.VersionName = in.VersionName

	if in.MinSDK > 0 || in.TargetSDK > 0 {
		if m.UsesSDK == nil {
			m.UsesSDK = &UsesSDK{}
		}
		if in.MinSDK > 0 {
			m.UsesSDK.MinSDK = strconv.Itoa(in.MinSDK)
		}
		if in.TargetSDK > 0 {
			m.UsesSDK.TargetSDK = strconv.Itoa(in.TargetSDK)
		}
	}

	for _, perm := range in.Permissions {
		if !m.HasPermission(perm) {
			m.Permissions = append(m.Permissions, UsesPermission{Name: perm})
		}
	}
	for _, feat := range in.Features {
		if !hasFeature(m.Features, feat) {
			m.Features = append(m.Features, UsesFeature{Name: feat})
		}
	}

	if m.Application == nil {
		m.Application = &Application{Label: in.Label, HasCode: "false"}
	}
	app := m.Application
	if app.Label == "" {
		app.Label = in.Label
	}
	if in.Debuggable {
		app.Debuggable = "true"
	}

	if in.Split != "" && in.LibName == "" {
		return
	}

	libBase := LibBaseName(in.LibName)
	found := false
	for i := range app.Activities {
		if app.Activities[i].Name == NativeActivity {
			app.Activities[i].setMetaData(LibNameMetaData, libBase)
			found = true
		}
	}
	if !found {
		app.Activities = append(app.Activities, nativeActivity(in.Label, libBase, !hasLauncher(app)))
	}
}

func injectSplit(m *Manifest, split string) {
	m.Split = split
	m.FeatureSplit = "true"
	m.XMLNSDist = DistNamespace
	if m.DistModule == nil {
		m.DistModule = &DistModule{
			Instant:  "false",
			Delivery: &DistDelivery{InstallTime: &Node{XMLName: xml.Name{Local: "dist:install-time"}}},
			Fusing:   &DistFusing{Include: "true"},
		}
	}
}

func nativeActivity(label, libBase string, launcher bool) Activity {
	a := Activity{
		Name:          NativeActivity,
		Label:         label,
		ConfigChanges: configChanges,
		Exported:      strconv.FormatBool(launcher),
		MetaData:      []MetaData{{Name: LibNameMetaData, Value: libBase}},
	}
	if launcher {
		a.IntentFilters = []IntentFilter{{
			Actions:    []Named{{Name: actionMain}},
			Categories: []Named{{Name: categoryLauncher}},
		}}
	}
	return a
}

func hasFeature(features []UsesFeature, name string) bool {
	for _, f := range features {
		if f.Name == name {
			return true
		}
	}
	return false
}

func hasLauncher(app *Application) bool {
	for _, a := range app.Activities {
		for _, f := range a.IntentFilters {
			for _, c := range f.Categories {
				if c.Name == categoryLauncher {
					return true
				}
			}
		}
	}
	return false
}
