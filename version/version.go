package version //nolint:revive // package name intentionally matches build-info convention

import "fmt"

//nolint:gochecknoglobals //version information is set at build time
var (
	Repository = "github.com/vesselworks/shipyard"
	Version    = "dev"
	Commit     string
	Date       string
)

// String renders the build information in a single line suitable for logs
// and the -version flag.
func String() string {
	out := fmt.Sprintf("%s %s", Repository, Version)
	if Commit != "" {
		out = fmt.Sprintf("%s (%s)", out, Commit)
	}
	if Date != "" {
		out = fmt.Sprintf("%s built %s", out, Date)
	}
	return out
}
