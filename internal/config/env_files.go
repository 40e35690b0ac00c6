package config

import (
	"os"
	"path/filepath"

	"github.com/evdal/switchback/internal/constants"
	"github.com/joho/godotenv"
)

// LoadEnvFiles attempts to load .env files from various locations.
// Does not return an error - just tries to load what it can find.
func LoadEnvFiles() {
	_ = godotenv.Load(constants.ConfigEnvFileName)

	if configDir, err := ConfigDir(); err == nil {
		configEnvPath := filepath.Join(configDir, constants.ConfigEnvFileName)
		_ = godotenv.Load(configEnvPath)
	}
}

// ConfigDir returns the per-user switchback config directory, creating it if needed.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "switchback")
	if err := os.MkdirAll(dir, constants.ModeDirPrivate); err != nil {
		return "", err
	}
	return dir, nil
}
