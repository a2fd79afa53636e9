package models

import "fmt"

// notAvailable stands in for build metadata the linker did not inject.
const notAvailable = "N/A"

// AppBuildInfo identifies the running syncd binary. Values come from -ldflags
// and are reported by GET /api/version.
type AppBuildInfo struct {
	version string
	date    string
	commit  string
}

func NewAppBuildInfo(version, date, commit string) AppBuildInfo {
	return AppBuildInfo{version: version, date: date, commit: commit}
}

// WithDefaults fills every missing field with "N/A" so a development build
// still reports something.
func (a AppBuildInfo) WithDefaults() AppBuildInfo {
	return AppBuildInfo{
		version: orNotAvailable(a.version),
		date:    orNotAvailable(a.date),
		commit:  orNotAvailable(a.commit),
	}
}

func (a AppBuildInfo) BuildVersion() string { return a.version }

func (a AppBuildInfo) BuildDate() string { return a.date }

func (a AppBuildInfo) BuildCommit() string { return a.commit }

// String is the startup banner, one field per line.
func (a AppBuildInfo) String() string {
	d := a.WithDefaults()
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", d.version, d.date, d.commit)
}

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
