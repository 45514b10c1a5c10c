package version

// Version is the current version of the backtest tools.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-backtest/internal/version.Version=1.2.3"
// The default value "dev" indicates a development build.
var Version = "dev"

// GetVersion returns the current version of the backtest tools.
func GetVersion() string {
	return Version
}
