package update

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
)

// Detect returns the current platform (OS and architecture)
func Detect() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// String returns "os/arch"
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// ExpandURL fills the {os}, {arch} and {version} placeholders of an archive URL.
// The version is path-escaped; URLs without placeholders are returned unchanged.
func (p Platform) ExpandURL(template, version string) string {
	return strings.NewReplacer(
		"{os}", p.OS,
		"{arch}", p.Arch,
		"{version}", url.PathEscape(strings.TrimSpace(version)),
	).Replace(template)
}
