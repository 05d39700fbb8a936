package opts

import "runtime"

// Names of the symbols every expression can reference.
const (
	SymbolHostPlatform   = "host_platform"
	SymbolTargetPlatform = "target_platform"
	SymbolEnv            = "env"
	SymbolDeployDirs     = "deploy_dirs"
)

// HostPlatform names the platform the tool is running on.
func HostPlatform() string {
	return normalizePlatform(runtime.GOOS)
}

// PlatformFamily groups platforms by their shell and path conventions.
func PlatformFamily(platform string) string {
	if normalizePlatform(platform) == "windows" {
		return "windows"
	}
	return "posix"
}

func normalizePlatform(goos string) string {
	switch goos {
	case "ios":
		return "darwin"
	case "android":
		return "linux"
	default:
		return goos
	}
}
