// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version" example:"1.2.0" doc:"Release version"`
	GitCommit string `json:"git_commit" example:"3f2a9c1" doc:"Source revision"`
	BuildDate string `json:"build_date" example:"2026-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"GOOS/GOARCH"`
}

// Get returns version and build information. A binary built with plain
// go build falls back to the VCS revision recorded by the toolchain.
func Get() Info {
	commit := GitCommit
	if commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			commit = rev
		}
	}
	return Info{
		Version:   Version,
		GitCommit: commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns "version (commit, date)" for --version output.
func String() string {
	info := Get()
	return fmt.Sprintf("%s (%s, %s)", info.Version, info.GitCommit, info.BuildDate)
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return ""
}
