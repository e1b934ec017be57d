package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables injected via ldflags
var (
	// Version is the semantic version, injected at build time
	Version = "dev"

	// GitCommit is the git commit hash, injected at build time
	GitCommit = "unknown"

	// BuildDate is the build date, injected at build time
	BuildDate = "unknown"

	// GoVersion is the Go version used to build
	GoVersion = runtime.Version()

	// GitDirty indicates if the working tree was dirty during build
	GitDirty = ""
)

// Info returns the version string shown to users.
func Info() string {
	version := Version
	if GitDirty == "true" && !strings.Contains(version, "-dirty") {
		version += "-dirty"
	}
	return version
}

// Full returns the version string with the short commit hash appended.
func Full() string {
	info := Info()
	if GitCommit == "" || GitCommit == "unknown" {
		return info
	}
	short := GitCommit
	if len(short) > 7 {
		short = short[:7]
	}
	if !strings.Contains(info, short) {
		info += fmt.Sprintf(" (%s)", short)
	}
	return info
}

// BuildInfo holds detailed build information.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GitDirty  bool   `json:"git_dirty"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetBuildInfo returns structured build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Info(),
		GitCommit: GitCommit,
		GitDirty:  GitDirty == "true",
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}

// UserAgent returns a user agent string for HTTP clients.
func UserAgent() string {
	return fmt.Sprintf("doubtsolver/%s", Info())
}
