// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Manifest Build - these keys locate the package descriptor and control manifest rendering.
const (
	ManifestPackage             = "manifest.package"
	ManifestOutput              = "manifest.output"
	ManifestKeepDuplicateGrants = "manifest.keep_duplicate_grants"
)

// Tracker Backend - these keys configure the HTTP service the userscript talks to.
const (
	ServerHost         = "server.host"
	ServerProtocol     = "server.protocol"
	ServerPort         = "server.port"
	ServerMissingLimit = "server.missing_limit"
)

// bgm.tv Application - these keys hold the OAuth client credentials registered on bgm.tv.
const (
	BgmAppID     = "bgm.app_id"
	BgmAppSecret = "bgm.app_secret"
)

// Persistence
const (
	StorePath = "store.path"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the application behavior outside the server.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
