// Package version carries the build identity stamped in by the linker:
//
//	go build -ldflags "-X github.com/traffisense/core/version.Version=v1.2.0 ..."
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// GetInfo returns the stamped values. Unstamped builds fall back to the
// VCS revision recorded by the Go toolchain, when there is one.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Commit == "none" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					info.Commit = shortRevision(s.Value)
				case "vcs.time":
					if info.BuildDate == "unknown" {
						info.BuildDate = s.Value
					}
				}
			}
		}
	}
	return info
}

// Dev reports whether the binary was built without a release version.
func (i Info) Dev() bool {
	return i.Version == "" || i.Version == "dev"
}

func (i Info) String() string {
	var b strings.Builder
	for _, row := range [][2]string{
		{"Version", i.Version},
		{"Commit", i.Commit},
		{"Built", i.BuildDate},
		{"Go", i.GoVersion},
		{"Platform", i.Platform},
	} {
		fmt.Fprintf(&b, "  %-10s%s\n", row[0]+":", row[1])
	}
	return strings.TrimRight(b.String(), "\n")
}

// UserAgent is sent with every backend request and stream handshake.
func UserAgent() string {
	return fmt.Sprintf("traffisense/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
