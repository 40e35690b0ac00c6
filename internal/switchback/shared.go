package switchback

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evdal/switchback/internal/apiclient"
	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/constants"
)

const defaultContextTimeout = 30 * time.Second

// getServer resolves the server URL: explicit flag first, then the target
// spec, then the client config when exactly one server is registered.
func getServer(spec *config.TargetSpec, url string) (string, error) {
	if url != "" {
		return normalizeServerURL(url), nil
	}

	if spec != nil && spec.Server != "" {
		return normalizeServerURL(spec.Server), nil
	}

	clientConfig, err := loadClientConfig()
	if err != nil {
		return "", err
	}
	if clientConfig == nil || len(clientConfig.Servers) == 0 {
		return defaultServerFromEnv(), nil
	}
	if len(clientConfig.Servers) == 1 {
		for serverURL := range clientConfig.Servers {
			return serverURL, nil
		}
	}

	return "", fmt.Errorf("multiple servers configured but none specified.\nAvailable servers: %s\nAdd 'server: <url>' to your config or pass --server",
		strings.Join(clientConfig.ListServers(), ", "))
}

// getToken resolves the API token for a server: the client config entry
// first, the spec's token env var second, the default env var last.
func getToken(spec *config.TargetSpec, serverURL string) (string, error) {
	clientConfig, err := loadClientConfig()
	if err != nil {
		return "", err
	}
	if clientConfig != nil {
		if token, ok := clientConfig.TokenFor(normalizeServerURL(serverURL)); ok {
			return token, nil
		}
	}

	if spec != nil && spec.APITokenEnv != "" {
		if token := os.Getenv(spec.APITokenEnv); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("token not found for server %s. Please set environment variable: %s", serverURL, spec.APITokenEnv)
	}

	return config.LoadAPIToken()
}

func loadClientConfig() (*config.ClientConfig, error) {
	path, err := config.ClientConfigPath()
	if err != nil {
		return nil, err
	}
	return config.LoadClientConfig(path)
}

func normalizeServerURL(url string) string {
	url = strings.TrimSuffix(url, "/")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return url
}

// newClient builds an API client for the given server, resolving its token.
func newClient(spec *config.TargetSpec, serverFlag string) (*apiclient.APIClient, string, error) {
	server, err := getServer(spec, serverFlag)
	if err != nil {
		return nil, "", err
	}
	token, err := getToken(spec, server)
	if err != nil {
		return nil, "", err
	}
	return apiclient.NewWithToken(server, token), server, nil
}

func defaultServerFromEnv() string {
	if v := os.Getenv("SWITCHBACK_SERVER"); v != "" {
		return v
	}
	return constants.DefaultAPIServerURL
}
