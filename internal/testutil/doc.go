// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error, plus
// fixtures that lay out fake Android SDK and JDK directories for discovery tests.
package testutil
