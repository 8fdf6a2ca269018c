// SPDX-License-Identifier: MPL-2.0

// Package sdk locates the Android SDK tools the packaging pipeline drives:
// aapt2, zipalign and apksigner from build-tools, android.jar from a platform,
// keytool from the JDK and bundletool.
package sdk
