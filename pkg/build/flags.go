// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata embedded at link time: the application
// name, build timestamp, Git commit and semantic version. It feeds the CLI
// version string and the telemetry resource.
//
//	go build -ldflags "-X github.com/sandcore/frequatuner/pkg/build.buildVersion=v0.3.0 ..."
package build

import (
	"errors"
	"fmt"
)

// Description is the one line summary shown by the CLI.
const Description = "Audio-reactive equalizer and chromatic tuner"

// Info is the build information of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the information for --version output.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &Info{
		Name:        "frequatuner",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize validates and copies build information from the ldflags
// variables. It returns an error naming the first missing flag and leaves
// the development defaults in place.
func Initialize() error {
	if buildName == "" {
		return errors.New("BuildName is required")
	}
	if buildTime == "" {
		return errors.New("BuildTime is required")
	}
	if buildCommit == "" {
		return errors.New("BuildCommit is required")
	}
	if buildVersion == "" {
		return errors.New("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}
