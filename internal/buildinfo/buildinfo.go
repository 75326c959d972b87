// Package buildinfo reports how the running binary was built.
package buildinfo

import (
	"runtime/debug"
)

// Info is the build metadata shown by `bcube-setup version`.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Read returns the metadata of the current binary. When build info is not
// embedded the version is "unknown".
func Read() Info {
	info, ok := readBuildInfo()
	if !ok {
		return Info{Version: "unknown"}
	}
	return fromBuildInfo(info)
}

// Version returns the version string for the current build.
func Version() string {
	return Read().Version
}

func fromBuildInfo(info *debug.BuildInfo) Info {
	out := Info{GoVersion: info.GoVersion}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.Revision = setting.Value
		case "vcs.modified":
			out.Modified = setting.Value == "true"
		case "vcs.time":
			out.BuildTime = setting.Value
		}
	}

	// Tagged release (go install from a tag)
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		out.Version = info.Main.Version
		return out
	}

	out.Version = "dev"
	if out.Revision != "" {
		short := out.Revision
		if len(short) > 12 {
			short = short[:12]
		}
		out.Version += "-" + short
		if out.Modified {
			out.Version += "-dirty"
		}
	}
	return out
}
