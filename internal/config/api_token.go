package config

import (
	"fmt"
	"os"

	"github.com/evdal/switchback/internal/constants"
)

// LoadAPIToken loads the API token from the environment or .env files.
func LoadAPIToken() (string, error) {
	LoadEnvFiles()

	token := os.Getenv(constants.EnvVarAPIToken)
	if token == "" {
		return "", fmt.Errorf("API token not found. Please set %s environment variable or create a .env file", constants.EnvVarAPIToken)
	}

	return token, nil
}
