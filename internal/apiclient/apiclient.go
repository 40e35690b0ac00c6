package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/ui"
)

// APIClient handles communication with the switchbackd API.
type APIClient struct {
	client   *http.Client
	baseURL  string
	apiToken string
}

func New(serverURL string) *APIClient {
	token, err := config.LoadAPIToken()
	if err != nil {
		ui.Error("Failed to load API token: %v", err)
		ui.Info("Set %s environment variable or create a %s file", constants.EnvVarAPIToken, constants.ConfigEnvFileName)
		// Continue without token - let API calls fail with proper auth errors
	}
	return NewWithToken(serverURL, token)
}

// NewWithToken builds a client with an explicit token, for callers that
// resolve tokens themselves (e.g. from the client config).
func NewWithToken(serverURL, token string) *APIClient {
	return &APIClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  strings.TrimSuffix(serverURL, "/"),
		apiToken: token,
	}
}

func (c *APIClient) setAuthHeader(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

func (c *APIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	// Health endpoint doesn't require auth
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *APIClient) get(ctx context.Context, path string, v any) error {
	url := fmt.Sprintf("%s/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create GET request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError("GET", resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *APIClient) post(ctx context.Context, path string, request, response interface{}) error {
	var jsonData []byte
	var err error

	// Handle nil request for endpoints that don't need a request body
	if request != nil {
		jsonData, err = json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	url := fmt.Sprintf("%s/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError("POST", resp)
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *APIClient) delete(ctx context.Context, path string) error {
	url := fmt.Sprintf("%s/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create DELETE request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send DELETE request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError("DELETE", resp)
	}
	return nil
}

func (c *APIClient) statusError(method string, resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("authentication failed - check your %s", constants.EnvVarAPIToken)
	}
	body := new(bytes.Buffer)
	_, _ = body.ReadFrom(resp.Body)
	if msg := strings.TrimSpace(body.String()); msg != "" {
		return fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode, msg)
	}
	return fmt.Errorf("%s request failed with status %d", method, resp.StatusCode)
}

// stream handles any SSE endpoint, passing each data payload to the
// handler. The handler returns true to stop streaming.
func (c *APIClient) stream(ctx context.Context, path string, handler func(data string) (bool, error)) error {
	streamingClient := &http.Client{Timeout: 0}

	url := fmt.Sprintf("%s/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create SSE request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.setAuthHeader(req)

	resp, err := streamingClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("authentication failed for stream - check your %s", constants.EnvVarAPIToken)
		}
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()

		// Skip empty lines and SSE comment lines
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")

			shouldStop, err := handler(data)
			if err != nil {
				ui.Warn("Failed to handle stream data: %v", err)
				continue
			}
			if shouldStop {
				return nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %w", err)
	}

	return nil
}
