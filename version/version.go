package version

import "fmt"

// These variables are set via ldflags during build:
//
//	-X github.com/philipparndt/voxmesh/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns the version with commit and build date when they
// are known
func GetFullVersion() string {
	switch {
	case GitCommit == "unknown" && BuildDate == "unknown":
		return Version
	case BuildDate == "unknown":
		return fmt.Sprintf("%s (%s)", Version, shortCommit())
	default:
		return fmt.Sprintf("%s (%s, built %s)", Version, shortCommit(), BuildDate)
	}
}

func shortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
