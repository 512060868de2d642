// Package version reports the build version of the binary.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is set at build time with -ldflags "-X .../version.Version=1.2.3".
var Version = "dev"

// Normalize ensures version string has "v" prefix for semver compatibility.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// String returns the canonical semver of Version, or Version unchanged when
// it is not a release build.
func String() string {
	v := Normalize(Version)
	if !semver.IsValid(v) {
		return Version
	}
	return semver.Canonical(v)
}
