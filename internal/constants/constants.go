package constants

import "os"

const (
	Version = "0.1.0"

	DockerNetwork       = "switchback-public"
	DefaultHistoryLimit = 20

	DefaultHealthCheckPath = "/health"
	DefaultContainerPort   = "80"

	APIServerPort       = "9876"
	DefaultAPIServerURL = "http://localhost:9876"

	// Environment variables
	EnvVarAgeIdentity = "SWITCHBACK_ENCRYPTION_KEY"
	EnvVarAPIToken    = "SWITCHBACK_API_TOKEN"
	EnvVarDataDir     = "SWITCHBACK_DATA_DIR"

	// Default paths used by the daemon.
	DefaultDataDir = "/var/lib/switchback"

	// File names
	ServerConfigFileName = "switchbackd.yaml"
	ConfigEnvFileName    = ".env"
)

// File and directory permissions
const (
	ModeFileSecret  os.FileMode = 0o600 // secrets: .env, keys
	ModeFileDefault os.FileMode = 0o644 // non-secret configs
	ModeDirPrivate  os.FileMode = 0o700 // private dirs
)
