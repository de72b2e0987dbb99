package version

import "runtime/debug"

// version is stamped at link time:
//
//	go build -ldflags "-X github.com/vinodismyname/sheettools/pkg/version.version=v1.2.0" ./cmd/server
var version string

// Version reports the stamped version, else the module version recorded by
// `go install module@version`, else "dev".
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
