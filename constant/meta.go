// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "bgm-tracker"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is the HTTP User-Agent sent to bgm.tv and the release registry.
	UserAgent = App + "/" + Version + " (https://github.com/Trim21/bilibili-bangumi-tv-auto-tracker)"

	// Repository is the public home of the tracker, used for the root redirect and release checks.
	Repository = "https://github.com/Trim21/bilibili-bangumi-tv-auto-tracker"
)

// Build metadata, overridden with -ldflags at release time.
var (
	BuiltAt  = ""
	BuiltBy  = ""
	Revision = ""
)
