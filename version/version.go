// Package version reports the version of the stakecore binaries.
package version

import (
	"fmt"
	"strings"
)

// validBuildCharacters are the characters allowed in appBuild.
const validBuildCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

const (
	appMajor uint = 0
	appMinor uint = 3
	appPatch uint = 0
)

// appBuild can be set at link time with
// -ldflags "-X github.com/stakecore/stakecore/version.appBuild=<build>".
var appBuild string

// Version returns the semantic version, followed by the build metadata when
// appBuild is set and well formed.
func Version() string {
	return formatVersion(appBuild)
}

func formatVersion(build string) string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if isValidBuild(build) {
		version = fmt.Sprintf("%s+%s", version, build)
	}
	return version
}

func isValidBuild(build string) bool {
	if build == "" {
		return false
	}
	for _, r := range build {
		if !strings.ContainsRune(validBuildCharacters, r) {
			return false
		}
	}
	return true
}
