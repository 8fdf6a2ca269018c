// SPDX-License-Identifier: MPL-2.0

// Package platform holds the operating-system differences nativepack cares
// about: executable suffixes of SDK tools and file names Windows reserves.
package platform
