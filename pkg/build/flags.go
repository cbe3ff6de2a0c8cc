// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the binary at compile time
// through linker flags, for example:
//
//	go build -ldflags "-X wavelab/pkg/build.buildVersion=0.1.0 -X wavelab/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds run with the defaults below.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the version line printed by --version.
func (i *Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "wavelab",
		Description: "Waveform generator and direct DFT workbench",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the ldflags variables into the build info. It returns an
// error naming the first missing flag and leaves the defaults in place.
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

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion

	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
