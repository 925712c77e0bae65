package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/scout/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/scout/internal/version.Commit=abc123
//	  -X github.com/soyeahso/scout/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("scout %s (commit: %s, built: %s, %s/%s)",
		Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

// ClientVersion is the version string reported to MCP servers during the
// initialize handshake.
func ClientVersion() string {
	if Commit == "unknown" {
		return Version
	}
	return Version + "+" + short(Commit)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
