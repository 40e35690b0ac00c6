package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/evdal/switchback/internal/constants"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// ClientConfig holds the CLI's registered daemons: API tokens keyed by
// normalized server URL. It lives outside the per-target specs so one
// login serves every target deployed through that daemon.
type ClientConfig struct {
	Servers map[string]string `json:"servers" yaml:"servers" toml:"servers"`
}

// AddServer registers or replaces the token for a server URL.
func (cc *ClientConfig) AddServer(url, token string) {
	if cc.Servers == nil {
		cc.Servers = make(map[string]string)
	}
	cc.Servers[url] = token
}

func (cc *ClientConfig) RemoveServer(url string) error {
	if _, exists := cc.Servers[url]; !exists {
		return fmt.Errorf("server %s not found", url)
	}
	delete(cc.Servers, url)
	return nil
}

// TokenFor returns the stored token for a server URL, if any.
func (cc *ClientConfig) TokenFor(url string) (string, bool) {
	token, exists := cc.Servers[url]
	return token, exists && token != ""
}

// ListServers returns the registered server URLs in stable order.
func (cc *ClientConfig) ListServers() []string {
	urls := make([]string, 0, len(cc.Servers))
	for url := range cc.Servers {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// ClientConfigPath returns the default location of the client config file.
func ClientConfigPath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "client.yaml"), nil
}

// LoadClientConfig reads the client config at path. A missing file means
// no servers have been registered yet and returns nil without error.
func LoadClientConfig(path string) (*ClientConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	format, err := getConfigFormat(path)
	if err != nil {
		return nil, err
	}
	parser, err := getConfigParser(format)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load client config file: %w", err)
	}

	var clientConfig ClientConfig
	if err := k.UnmarshalWithConf("", &clientConfig, koanf.UnmarshalConf{Tag: format}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}
	return &clientConfig, nil
}

// Save writes the config as yaml, readable only by the owner since it
// carries API tokens.
func (cc *ClientConfig) Save(path string) error {
	data, err := yaml.Marshal(cc)
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.ModeDirPrivate); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, constants.ModeFileSecret)
}
