// SPDX-License-Identifier: MPL-2.0

// Package bundle turns signed archives into Android App Bundle modules and
// assembles them with bundletool.
//
// An Assembly moves through Extracted, Rezipped and Assembled. Each module is
// extracted from its signed archive, re-laid into bundletool's module layout
// (manifest/, dex/, root/, ...) and re-zipped; the final Assemble step runs
// `bundletool build-bundle` over every module.
package bundle
