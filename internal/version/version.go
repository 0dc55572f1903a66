// Package version reports the build version of the advisor binaries.
// Both values are set at build time:
//
//	go build -ldflags "-X github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/version.Version=v0.3.0 -X github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/version.Commit=abc1234"
package version

var (
	Version = "dev"
	Commit  = ""
)

// String returns the version with the short commit appended when known.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
