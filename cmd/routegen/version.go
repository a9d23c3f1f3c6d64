package main

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var baseVersion string

// Version returns the module version of a binary built with
// `go install ...@version`, and devel-VERSION[+rev] for any other build.
func Version() string {
	base := strings.TrimSpace(baseVersion)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return base
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	v := "devel-" + base
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return v + "+" + s.Value[:7]
		}
	}
	return v
}
