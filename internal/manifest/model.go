// SPDX-License-Identifier: MPL-2.0

package manifest

import "encoding/xml"

const (
	// AndroidNamespace is the URI bound to the android: prefix.
	AndroidNamespace = "http://schemas.android.com/apk/res/android"

	// FileName is the canonical manifest file name.
	FileName = "AndroidManifest.xml"

	// NativeActivity is the framework activity that loads the app's shared library.
	NativeActivity = "android.app.NativeActivity"

	// DistNamespace is the URI bound to the dist: prefix used by bundle modules.
	DistNamespace = "http://schemas.android.com/apk/distribution"

	// LibNameMetaData is the meta-data key NativeActivity reads the library name from.
	LibNameMetaData = "android.app.lib_name"

	actionMain       = "android.intent.action.MAIN"
	categoryLauncher = "android.intent.category.LAUNCHER"
	configChanges    = "orientation|keyboardHidden|screenSize|screenLayout|uiMode"
)

// Attribute names below keep their literal "android:" prefix. Parsing goes
// through a decoder that flattens prefixes into local names, so the same
// tags serve both directions.
type (
	// Manifest is the root <manifest> element.
	Manifest struct {
		XMLName      xml.Name         `xml:"manifest"`
		XMLNSAndroid string           `xml:"xmlns:android,attr"`
		XMLNSDist    string           `xml:"xmlns:dist,attr,omitempty"`
		Package      string           `xml:"package,attr,omitempty"`
		Split        string           `xml:"split,attr,omitempty"`
		FeatureSplit string           `xml:"android:isFeatureSplit,attr,omitempty"`
		VersionCode  string           `xml:"android:versionCode,attr,omitempty"`
		VersionName  string           `xml:"android:versionName,attr,omitempty"`
		OtherAttrs   []xml.Attr       `xml:",any,attr"`
		DistModule   *DistModule      `xml:"dist:module"`
		UsesSDK      *UsesSDK         `xml:"uses-sdk"`
		Permissions  []UsesPermission `xml:"uses-permission"`
		Features     []UsesFeature    `xml:"uses-feature"`
		Application  *Application     `xml:"application"`
		Other        []Node           `xml:",any"`

		// Notes collects non-fatal adjustments made while generating, such as
		// an override package name replaced by the build's.
		Notes []string `xml:"-"`
	}

	// DistModule is <dist:module>, which bundletool reads to decide how a
	// feature module is delivered.
	DistModule struct {
		Instant    string        `xml:"dist:instant,attr,omitempty"`
		OtherAttrs []xml.Attr    `xml:",any,attr"`
		Delivery   *DistDelivery `xml:"dist:delivery"`
		Fusing     *DistFusing   `xml:"dist:fusing"`
		Other      []Node        `xml:",any"`
	}

	// DistDelivery is <dist:delivery>.
	DistDelivery struct {
		OtherAttrs  []xml.Attr `xml:",any,attr"`
		InstallTime *Node      `xml:"dist:install-time"`
		Other       []Node     `xml:",any"`
	}

	// DistFusing is <dist:fusing>.
	DistFusing struct {
		Include    string     `xml:"dist:include,attr"`
		OtherAttrs []xml.Attr `xml:",any,attr"`
	}

	// UsesSDK is <uses-sdk>.
	UsesSDK struct {
		MinSDK     string     `xml:"android:minSdkVersion,attr,omitempty"`
		TargetSDK  string     `xml:"android:targetSdkVersion,attr,omitempty"`
		OtherAttrs []xml.Attr `xml:",any,attr"`
	}

	// UsesPermission is <uses-permission>.
	UsesPermission struct {
		Name       string     `xml:"android:name,attr"`
		OtherAttrs []xml.Attr `xml:",any,attr"`
	}

	// UsesFeature is <uses-feature>.
	UsesFeature struct {
		Name        string     `xml:"android:name,attr,omitempty"`
		GLESVersion string     `xml:"android:glEsVersion,attr,omitempty"`
		Required    string     `xml:"android:required,attr,omitempty"`
		OtherAttrs  []xml.Attr `xml:",any,attr"`
	}

	// Application is <application>.
	Application struct {
		Label      string     `xml:"android:label,attr,omitempty"`
		HasCode    string     `xml:"android:hasCode,attr,omitempty"`
		Debuggable string     `xml:"android:debuggable,attr,omitempty"`
		OtherAttrs []xml.Attr `xml:",any,attr"`
		MetaData   []MetaData `xml:"meta-data"`
		Activities []Activity `xml:"activity"`
		Other      []Node     `xml:",any"`
	}

	// Activity is <activity>.
	Activity struct {
		Name          string         `xml:"android:name,attr"`
		Label         string         `xml:"android:label,attr,omitempty"`
		ConfigChanges string         `xml:"android:configChanges,attr,omitempty"`
		Exported      string         `xml:"android:exported,attr,omitempty"`
		OtherAttrs    []xml.Attr     `xml:",any,attr"`
		MetaData      []MetaData     `xml:"meta-data"`
		IntentFilters []IntentFilter `xml:"intent-filter"`
		Other         []Node         `xml:",any"`
	}

	// MetaData is <meta-data>.
	MetaData struct {
		Name       string     `xml:"android:name,attr"`
		Value      string     `xml:"android:value,attr,omitempty"`
		OtherAttrs []xml.Attr `xml:",any,attr"`
	}

	// IntentFilter is <intent-filter>.
	IntentFilter struct {
		OtherAttrs []xml.Attr `xml:",any,attr"`
		Actions    []Named    `xml:"action"`
		Categories []Named    `xml:"category"`
		Other      []Node     `xml:",any"`
	}

	// Named is an element whose only required attribute is android:name.
	Named struct {
		Name       string     `xml:"android:name,attr"`
		OtherAttrs []xml.Attr `xml:",any,attr"`
	}

	// Node preserves an element the typed model does not cover.
	Node struct {
		XMLName  xml.Name
		Attrs    []xml.Attr `xml:",any,attr"`
		Children []Node     `xml:",any"`
		Text     string     `xml:",chardata"`
	}
)

// HasPermission reports whether the manifest requests perm.
func (m *Manifest) HasPermission(perm string) bool {
	for _, p := range m.Permissions {
		if p.Name == perm {
			return true
		}
	}
	return false
}

// NativeLibName returns the android.app.lib_name value of the first
// NativeActivity, or "" if there is none.
func (m *Manifest) NativeLibName() string {
	if m.Application == nil {
		return ""
	}
	for _, a := range m.Application.Activities {
		if a.Name != NativeActivity {
			continue
		}
		for _, md := range a.MetaData {
			if md.Name == LibNameMetaData {
				return md.Value
			}
		}
	}
	return ""
}

func (a *Activity) setMetaData(name, value string) {
	for i := range a.MetaData {
		if a.MetaData[i].Name == name {
			a.MetaData[i].Value = value
			return
		}
	}
	a.MetaData = append(a.MetaData, MetaData{Name: name, Value: value})
}
