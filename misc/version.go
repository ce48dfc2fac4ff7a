// Package misc keeps program identity which is set at build time.
package misc

var (
	appName = "kfcss"
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name.
func GetAppName() string {
	return appName
}

// GetVersion returns program version, overwritten with -ldflags "-X kfcss/misc.version=...".
func GetVersion() string {
	return version
}

// GetGitHash returns commit hash program was built from.
func GetGitHash() string {
	return gitHash
}
