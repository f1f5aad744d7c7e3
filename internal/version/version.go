package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/PizzaHomicide/anistream/internal/version.Version=..." at release time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// GetVersion returns the release version.  Binaries built with go install fall back to the module version.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func GetBuildTime() string {
	return BuildTime
}

// revision is the VCS commit recorded by the go toolchain, if any
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}

// GetVersionInfo is the one line printed by the version command
func GetVersionInfo() string {
	out := fmt.Sprintf("anistream %s (built %s", GetVersion(), BuildTime)
	if rev := revision(); rev != "" {
		out += ", " + rev
	}
	return out + ")"
}
