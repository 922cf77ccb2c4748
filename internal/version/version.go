package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build, set via ldflags.
	Version = ""
	// Commit is the short git SHA, set via ldflags.
	Commit = ""
	// BuildTime is the UTC build timestamp, set via ldflags.
	BuildTime = ""
)

const unknown = "unknown"

// readBuildInfo is swapped in tests.
//
//nolint:gochecknoglobals // Test seam.
var readBuildInfo = debug.ReadBuildInfo

// Info is the resolved build metadata.
type Info struct {
	// Version is the semantic version or "devel".
	Version string
	// Commit is the VCS revision or "unknown".
	Commit string
	// BuildTime is the build or commit timestamp or "unknown".
	BuildTime string
	// GoVersion is the toolchain that built the binary.
	GoVersion string
}

// Get resolves build metadata from ldflags first, then from module build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	if build, ok := readBuildInfo(); ok {
		if info.Version == "" && build.Main.Version != "" && build.Main.Version != "(devel)" {
			info.Version = build.Main.Version
		}

		for _, setting := range build.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = shortRevision(setting.Value)
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = setting.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "devel"
	}

	if info.Commit == "" {
		info.Commit = unknown
	}

	if info.BuildTime == "" {
		info.BuildTime = unknown
	}

	return info
}

// Short returns only the semantic version string.
func Short() string {
	return Get().Version
}

// Full returns a human-readable version line.
func Full() string {
	info := Get()

	return fmt.Sprintf("marker-alerts %s (commit %s, built %s, %s)",
		info.Version, info.Commit, info.BuildTime, info.GoVersion)
}

// Fields returns the metadata as logger key-value pairs.
func Fields() []any {
	info := Get()

	return []any{
		"version", info.Version,
		"commit", info.Commit,
		"build_time", info.BuildTime,
	}
}

func shortRevision(revision string) string {
	const length = 7
	if len(revision) > length {
		return revision[:length]
	}

	return revision
}
