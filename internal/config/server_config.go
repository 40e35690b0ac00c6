package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evdal/switchback/internal/constants"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the switchbackd daemon.
type ServerConfig struct {
	Listen       string `yaml:"listen" json:"listen" toml:"listen"`
	DataDir      string `yaml:"data_dir" json:"dataDir" toml:"data_dir"`
	LogLevel     string `yaml:"log_level" json:"logLevel" toml:"log_level"`
	WebhookURL   string `yaml:"webhook_url" json:"webhookUrl" toml:"webhook_url"`
	HistoryLimit int    `yaml:"history_limit" json:"historyLimit" toml:"history_limit"`
}

// Normalize sets default values for ServerConfig.
func (sc *ServerConfig) Normalize() *ServerConfig {
	if sc.Listen == "" {
		sc.Listen = ":" + constants.APIServerPort
	}
	if sc.DataDir == "" {
		sc.DataDir = constants.DefaultDataDir
		if fromEnv := os.Getenv(constants.EnvVarDataDir); fromEnv != "" {
			sc.DataDir = fromEnv
		}
	}
	if sc.LogLevel == "" {
		sc.LogLevel = "info"
	}
	if sc.HistoryLimit <= 0 {
		sc.HistoryLimit = constants.DefaultHistoryLimit
	}
	return sc
}

func (sc *ServerConfig) Validate() error {
	if sc.WebhookURL != "" && !strings.HasPrefix(sc.WebhookURL, "http://") && !strings.HasPrefix(sc.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must be an http or https URL: %s", sc.WebhookURL)
	}
	_, port, err := net.SplitHostPort(sc.Listen)
	if err != nil {
		return fmt.Errorf("listen address must be host:port: %s", sc.Listen)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("listen port '%s' is not a valid number", port)
	}
	return nil
}

// LoadServerConfig reads the daemon config from configPath. A missing file
// is not an error; the returned config is all defaults.
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	var serverConfig ServerConfig

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		serverConfig.Normalize()
		return &serverConfig, nil
	}

	format, err := getConfigFormat(configPath)
	if err != nil {
		return nil, err
	}
	parser, err := getConfigParser(format)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), parser); err != nil {
		return nil, fmt.Errorf("failed to load server config file: %w", err)
	}

	if err := k.UnmarshalWithConf("", &serverConfig, koanf.UnmarshalConf{Tag: format}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server config: %w", err)
	}

	serverConfig.Normalize()
	if err := serverConfig.Validate(); err != nil {
		return nil, err
	}
	return &serverConfig, nil
}

func SaveServerConfig(config *ServerConfig, configPath string) error {
	ext := filepath.Ext(configPath)
	var data []byte
	var err error

	switch ext {
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default: // yaml
		data, err = yaml.Marshal(config)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, constants.ModeFileDefault)
}
