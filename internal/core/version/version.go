// Package version reports the build identity stamped into products and /version
package version

import (
	"runtime/debug"
	"strings"
)

// Stamped at link time:
//
//	-ldflags "-X ffiassembler/internal/core/version.version=v1.2.0 -X ffiassembler/internal/core/version.commit=$(git rev-parse HEAD)"
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Program is the name written into CREATOR and reported by /version
const Program = "ffi-assembler"

// BuildInfo is the build identity of the running binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Dirty   bool   `json:"dirty,omitempty"`
}

// Info returns the stamped identity, filling commit and date from the
// embedded VCS settings when the linker left them empty
func Info() BuildInfo {
	bi := BuildInfo{Service: Program, Version: version, Commit: commit, Date: date}
	if info, ok := debug.ReadBuildInfo(); ok {
		fillVCS(&bi, info.Settings)
	}
	if bi.Commit == "" {
		bi.Commit = "none"
	}
	if bi.Date == "" {
		bi.Date = "unknown"
	}
	return bi
}

func fillVCS(bi *BuildInfo, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if bi.Commit == "" {
				bi.Commit = s.Value
			}
		case "vcs.time":
			if bi.Date == "" {
				bi.Date = s.Value
			}
		case "vcs.modified":
			bi.Dirty = s.Value == "true"
		}
	}
}

// Creator is the CREATOR card value, e.g. "ffi-assembler v1.2.0"
func Creator() string {
	return strings.TrimSpace(Program + " " + version)
}
