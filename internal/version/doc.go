// Package version exposes build metadata of the marker-alerts binary.
//
// Version, Commit and BuildTime are injected with ldflags by release builds.
// Binaries installed with `go install` fall back to the module build info.
package version
