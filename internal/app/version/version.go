package version

import "runtime/debug"

// Set at link time: -ldflags "-X roost/internal/app/version.buildVersion=v1.2.0".
var (
	buildVersion = "dev"
	builtAt      = "unknown"
)

type Info struct {
	BuildVersion string `json:"buildVersion"`
	BuiltAt      string `json:"builtAt"`
	GoVersion    string `json:"goVersion"`
}

// Get reports the link-time values, falling back to the module version recorded by go install.
func Get() Info {
	info := Info{BuildVersion: buildVersion, BuiltAt: builtAt}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if info.BuildVersion == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.BuildVersion = bi.Main.Version
		}
	}
	return info
}

func (i Info) String() string {
	return i.BuildVersion + " (built " + i.BuiltAt + ", " + i.GoVersion + ")"
}
