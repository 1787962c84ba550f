// Package version holds build information for the store client.
//
// The variables are injected at build time:
//
//	-ldflags "-X store/internal/version.version=v1.0.0 -X store/internal/version.commit=abc123 -X store/internal/version.buildTime=2025-01-01T00:00:00Z"
package version

import (
	"strings"
)

// These variables are set via ldflags during build.
//
//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name of the application displayed in version output.
const ApplicationName = "store"

// Default values used when version information is not available.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// Info encapsulates the build information with defaults applied.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   withDefault(version, DefaultVersion),
		Commit:    withDefault(commit, DefaultCommit),
		BuildTime: withDefault(buildTime, DefaultBuildTime),
	}
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

// String returns a one-line description such as "v1.2.0 (commit abc123, built 2025-01-01T00:00:00Z)".
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	b.WriteString(" (commit ")
	b.WriteString(i.Commit)
	b.WriteString(", built ")
	b.WriteString(i.BuildTime)
	b.WriteString(")")
	return b.String()
}

// UserAgent returns the User-Agent header value sent with API requests.
func (i Info) UserAgent() string {
	return ApplicationName + "-client/" + i.Version
}

// SetBuildVars overrides the build-time variables. Used by tests.
func SetBuildVars(ver, com, bt string) {
	version = ver
	commit = com
	buildTime = bt
}

// ResetBuildVars resets all build variables to empty values.
func ResetBuildVars() {
	SetBuildVars("", "", "")
}
