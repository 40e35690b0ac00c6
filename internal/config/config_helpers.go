package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
)

var (
	supportedExtensions  = []string{".json", ".yaml", ".yml", ".toml"}
	supportedConfigNames = []string{"switchback.json", "switchback.yaml", "switchback.yml", "switchback.toml"}
)

// FindConfigFile finds a switchback config file based on the given path.
// It supports:
// - Full path to a config file
// - Directory containing a switchback config file
// - Relative paths
func FindConfigFile(path string) (string, error) {
	// If no path provided, use current directory
	if path == "" {
		path = "."
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %s", absPath)
	}

	// If it's a file, validate it's a supported extension
	if !stat.IsDir() {
		ext := filepath.Ext(absPath)
		if !slices.Contains(supportedExtensions, ext) {
			return "", fmt.Errorf("file %s is not a valid switchback config file (must be .json, .yaml, .yml, or .toml)", absPath)
		}
		return absPath, nil
	}

	// If it's a directory, look for switchback config files
	for _, configName := range supportedConfigNames {
		configPath := filepath.Join(absPath, configName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	dirName := path
	if path == "." {
		if cwd, err := os.Getwd(); err == nil {
			dirName = filepath.Base(cwd)
		}
	}

	return "", fmt.Errorf("no switchback config file found in directory %s (looking for: %s)",
		dirName, strings.Join(supportedConfigNames, ", "))
}

func getConfigFormat(configFile string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(configFile), ".")
	switch ext {
	case "json", "yaml", "toml":
		return ext, nil
	case "yml":
		// Struct tags use "yaml", so .yml files decode with the same tag.
		return "yaml", nil
	default:
		return "", fmt.Errorf("unsupported config file type: %s", configFile)
	}
}

func getConfigParser(format string) (koanf.Parser, error) {
	switch format {
	case "json":
		return json.Parser(), nil
	case "yaml", "yml":
		return yaml.Parser(), nil
	case "toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
}
