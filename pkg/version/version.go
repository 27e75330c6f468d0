// Package version holds build information for co2mcp binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	BuildVersion = "dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// Info returns version details as a flat map, suitable for metric labels
// and health payloads.
func Info() map[string]string {
	commit := BuildCommit
	date := BuildDate
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "unknown" {
					commit = s.Value
				}
			case "vcs.time":
				if date == "unknown" {
					date = s.Value
				}
			}
		}
	}
	return map[string]string{
		"version":    BuildVersion,
		"go_version": runtime.Version(),
		"commit":     commit,
		"build_date": date,
	}
}

// String returns a one-line version banner.
func String() string {
	info := Info()
	return fmt.Sprintf("co2mcp %s (commit %s, built %s, %s)",
		info["version"], info["commit"], info["build_date"], info["go_version"])
}
