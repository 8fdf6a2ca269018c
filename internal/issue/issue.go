// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	SDKNotFoundId Id = iota + 1
	BuildToolsNotFoundId
	PlatformNotFoundId
	JavaNotFoundId
	BundletoolNotFoundId
	ProjectNotFoundId
	ProjectParseErrorId
	ConfigLoadFailedId
	ManifestInvalidId
	ResourceStageFailedId
	NativeLibraryMissingId
	LibraryHookFailedId
	AlignmentFailedId
	KeystoreUnavailableId
	SigningRejectedId
	BundleAssemblyFailedId
	ModuleCycleId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var extra strings.Builder
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extra.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			extra.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(string(i.mdMsg)+extra.String(), stylePath)
}

var (
	render = glamour.Render

	sdkNotFoundIssue = &Issue{
		id: SDKNotFoundId,
		mdMsg: `
# Android SDK not found!

nativepack drives the SDK's own tools and needs to know where the SDK lives.

## Lookup order
1. ` + "`sdk.android_home`" + ` in your config (or NATIVEPACK_SDK_ANDROID_HOME)
2. ANDROID_HOME
3. ANDROID_SDK_ROOT

## Things you can try:
- Point ANDROID_HOME at your SDK:
~~~
$ export ANDROID_HOME=$HOME/Android/Sdk
~~~
- Or set it once in the config file:
~~~cue
sdk: android_home: "/opt/android-sdk"
~~~`,
		extLinks: []HttpLink{"https://developer.android.com/tools/variables"},
	}

	buildToolsNotFoundIssue = &Issue{
		id: BuildToolsNotFoundId,
		mdMsg: `
# Build tools not found!

aapt2, zipalign and apksigner come from ` + "`$ANDROID_HOME/build-tools/<version>`" + `.
Either no build-tools are installed or the pinned version is missing a tool.

## Things you can try:
- Install build-tools with the SDK manager:
~~~
$ sdkmanager "build-tools;34.0.0"
~~~
- Remove or correct the ` + "`sdk.build_tools`" + ` pin in your config
- Run ` + "`nativepack sdk`" + ` to see what was resolved`,
		extLinks: []HttpLink{"https://developer.android.com/tools/sdkmanager"},
	}

	platformNotFoundIssue = &Issue{
		id: PlatformNotFoundId,
		mdMsg: `
# Android platform not found!

Resource linking needs ` + "`android.jar`" + ` from ` + "`$ANDROID_HOME/platforms/android-<N>`" + `.

## Things you can try:
- Install a platform:
~~~
$ sdkmanager "platforms;android-34"
~~~
- Remove or correct the ` + "`sdk.platform`" + ` pin in your config`,
		extLinks: []HttpLink{"https://developer.android.com/tools/sdkmanager"},
	}

	javaNotFoundIssue = &Issue{
		id: JavaNotFoundId,
		mdMsg: `
# Java not found!

keytool (debug key creation) and bundletool jars need a Java runtime.

## Things you can try:
- Set JAVA_HOME to a JDK installation
- Make sure ` + "`keytool`" + ` and ` + "`java`" + ` are on your PATH
- Set ` + "`sdk.java_home`" + ` in your config`,
	}

	bundletoolNotFoundIssue = &Issue{
		id: BundletoolNotFoundId,
		mdMsg: `
# bundletool not found!

Building an App Bundle (` + "`format: \"bundle\"`" + `) requires bundletool.

## Things you can try:
- Download the jar and point BUNDLETOOL_PATH at it:
~~~
$ export BUNDLETOOL_PATH=$HOME/tools/bundletool-all.jar
~~~
- Set ` + "`sdk.bundletool`" + ` in your config
- Build an APK instead with ` + "`--format archive`",
		extLinks: []HttpLink{"https://developer.android.com/tools/bundletool"},
	}

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# No project file found!

nativepack looks for ` + "`nativepack.cue`" + ` or ` + "`nativepack.toml`" + ` in the current directory.

## Example nativepack.cue
~~~cue
package_id:   "com.example.game"
label:        "game"
version_name: "1.0"
version_code: 1
min_sdk:      24
target_sdk:   34
targets: ["arm64", "x86_64"]
libraries: paths: {
	arm64:  "build/arm64/libgame.so"
	x86_64: "build/x86_64/libgame.so"
}
~~~

## Things you can try:
- Run from the project directory
- Pass the file explicitly with ` + "`--project`",
	}

	projectParseErrorIssue = &Issue{
		id: ProjectParseErrorId,
		mdMsg: `
# Failed to parse the project file!

The project file has a syntax error or a value that does not match the schema.

## Common causes:
- ` + "`version_code`" + ` must be a positive integer
- ` + "`package_id`" + ` needs at least two dot-separated segments
- Unknown ABI in ` + "`targets`" + ` (use arm64-v8a, armeabi-v7a, x86 or x86_64)
- A signing password written as ` + "`env:NAME`" + ` refers to an unset variable`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Print the effective configuration:
~~~
$ nativepack config show
~~~
- Write a fresh default file:
~~~
$ nativepack config init
~~~
- Check NATIVEPACK_* environment variables for bad values`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid manifest!

The manifest override could not be read as XML, or the generated manifest could not
be written.

## Things you can try:
- Check that the override file is well-formed XML with a ` + "`<manifest>`" + ` root
- Remove ` + "`manifest`" + ` from the project file to use the generated default`,
		extLinks: []HttpLink{"https://developer.android.com/guide/topics/manifest/manifest-intro"},
	}

	resourceStageFailedIssue = &Issue{
		id: ResourceStageFailedId,
		mdMsg: `
# aapt2 failed!

The tool output above is printed verbatim. It usually names the resource file and line.

## Common causes:
- Malformed XML under ` + "`res/`" + `
- Resource names with upper-case letters or dashes
- ` + "`min_sdk`" + ` above the installed platform`,
		extLinks: []HttpLink{"https://developer.android.com/tools/aapt2"},
	}

	nativeLibraryMissingIssue = &Issue{
		id: NativeLibraryMissingId,
		mdMsg: `
# Native library missing!

Every target ABI needs a built shared library before the archive can be signed.

## Things you can try:
- Build the library for each ABI listed in ` + "`targets`" + `
- Check the ` + "`libraries`" + ` paths in the project file
- Add a ` + "`libraries.command`" + ` hook so nativepack builds them`,
		extLinks: []HttpLink{"https://developer.android.com/ndk/guides/abis"},
	}

	libraryHookFailedIssue = &Issue{
		id: LibraryHookFailedId,
		mdMsg: `
# Library build hook failed!

The ` + "`libraries.command`" + ` script exited with an error for one ABI.

## Things you can try:
- Run the command by hand with NATIVEPACK_ABI and NATIVEPACK_TARGET_DIR set
- Check that ` + "`libraries.output`" + ` matches where the command writes the library`,
	}

	alignmentFailedIssue = &Issue{
		id: AlignmentFailedId,
		mdMsg: `
# Alignment failed!

## Things you can try:
- Retry with the in-process aligner:
~~~
$ nativepack build --align-engine builtin
~~~
- Check the archive with ` + "`nativepack verify-align`",
		extLinks: []HttpLink{"https://developer.android.com/tools/zipalign"},
	}

	keystoreUnavailableIssue = &Issue{
		id: KeystoreUnavailableId,
		mdMsg: `
# Keystore unavailable!

The keystore could not be opened with the given alias and passwords.

## Things you can try:
- Verify the keystore path and alias
- Check that ` + "`env:`" + ` password variables are exported
- For debug builds, delete a corrupt ` + "`~/.android/debug.keystore`" + ` and run:
~~~
$ nativepack debug-key
~~~`,
		extLinks: []HttpLink{"https://developer.android.com/studio/publish/app-signing"},
	}

	signingRejectedIssue = &Issue{
		id: SigningRejectedId,
		mdMsg: `
# apksigner rejected the archive!

The signer opened the key but refused the input archive.

## Things you can try:
- Make sure the archive was aligned before signing
- Check that ` + "`min_sdk`" + ` is supported by the signing scheme`,
		extLinks: []HttpLink{"https://developer.android.com/tools/apksigner"},
	}

	bundleAssemblyFailedIssue = &Issue{
		id: BundleAssemblyFailedId,
		mdMsg: `
# Bundle assembly failed!

bundletool could not combine the module archives.

## Common causes:
- Module archives linked without proto format
- Two modules with the same name
- A feature module whose manifest lacks the ` + "`dist:module`" + ` element`,
		extLinks: []HttpLink{"https://developer.android.com/guide/app-bundle/app-bundle-format"},
	}

	moduleCycleIssue = &Issue{
		id: ModuleCycleId,
		mdMsg: `
# Module dependency cycle!

Feature modules form a loop through ` + "`depends_on`" + `.

## Things you can try:
- Move shared code into the base module
- Remove one edge of the cycle`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

nativepack could not write into the build directory or read an input.

## Things you can try:
- Check ownership of the build directory
- Choose another directory with ` + "`--build-dir`",
	}

	issues = map[Id]*Issue{
		sdkNotFoundIssue.Id():          sdkNotFoundIssue,
		buildToolsNotFoundIssue.Id():   buildToolsNotFoundIssue,
		platformNotFoundIssue.Id():     platformNotFoundIssue,
		javaNotFoundIssue.Id():         javaNotFoundIssue,
		bundletoolNotFoundIssue.Id():   bundletoolNotFoundIssue,
		projectNotFoundIssue.Id():      projectNotFoundIssue,
		projectParseErrorIssue.Id():    projectParseErrorIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		manifestInvalidIssue.Id():      manifestInvalidIssue,
		resourceStageFailedIssue.Id():  resourceStageFailedIssue,
		nativeLibraryMissingIssue.Id(): nativeLibraryMissingIssue,
		libraryHookFailedIssue.Id():    libraryHookFailedIssue,
		alignmentFailedIssue.Id():      alignmentFailedIssue,
		keystoreUnavailableIssue.Id():  keystoreUnavailableIssue,
		signingRejectedIssue.Id():      signingRejectedIssue,
		bundleAssemblyFailedIssue.Id(): bundleAssemblyFailedIssue,
		moduleCycleIssue.Id():          moduleCycleIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
