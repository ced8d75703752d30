// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the spctl version.
package version

import (
	"fmt"
	"strings"
)

const (
	// preReleaseAlphabet is the set of characters semantic versioning
	// allows in a pre-release identifier.
	preReleaseAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

	// buildAlphabet additionally allows dots in build metadata.
	buildAlphabet = preReleaseAlphabet + "."
)

// Application version, following semantic versioning 2.0.0.
const (
	Major uint = 0
	Minor uint = 1
	Patch uint = 0
)

var (
	// PreRelease may be overridden at build time with
	// '-ldflags "-X github.com/silentpay/spd/internal/version.PreRelease=foo"'.
	PreRelease = "beta"

	// BuildMetadata may be overridden at build time with
	// '-ldflags "-X github.com/silentpay/spd/internal/version.BuildMetadata=foo"'.
	BuildMetadata = ""
)

// String returns the version as major.minor.patch[-prerelease][+build].
// Characters not allowed by semantic versioning are dropped from the
// pre-release and build parts.
func String() string {
	version := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if pre := normalize(PreRelease, preReleaseAlphabet); pre != "" {
		version += "-" + pre
	}
	if build := normalize(BuildMetadata, buildAlphabet); build != "" {
		version += "+" + build
	}
	return version
}

func normalize(str, alphabet string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(alphabet, r) {
			return r
		}
		return -1
	}, str)
}
