// Package version exposes build metadata injected through ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name reported in version strings and user agents.
const Name = "outline-backup"

// Set at build time with -ldflags "-X .../pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Get returns the current build information. When the binary was built
// without ldflags, the VCS revision recorded by the toolchain is used.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if info.Commit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					info.Commit = s.Value
				case "vcs.time":
					if info.Date == "unknown" {
						info.Date = s.Value
					}
				}
			}
		}
	}

	return info
}

// String returns a human-readable version string.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s, %s/%s)",
		Name, i.Version, i.Commit, i.Date, i.GoVersion, i.OS, i.Arch)
}

// UserAgent returns the value sent in outgoing HTTP requests.
func (i Info) UserAgent() string {
	return fmt.Sprintf("%s/%s (%s/%s)", Name, i.Version, i.OS, i.Arch)
}
