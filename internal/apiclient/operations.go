package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evdal/switchback/internal/apitypes"
	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/logging"
	"github.com/evdal/switchback/internal/ui"
)

func (c *APIClient) Deploy(ctx context.Context, spec config.TargetSpec, artifact string) (*apitypes.DeployResponse, error) {
	request := apitypes.DeployRequest{Spec: spec, Artifact: artifact}
	var response apitypes.DeployResponse
	err := c.post(ctx, "deploy", request, &response)
	return &response, err
}

func (c *APIClient) RollbackTargets(ctx context.Context, target string) (*apitypes.RollbackTargetsResponse, error) {
	path := fmt.Sprintf("rollback/%s", target)
	var response apitypes.RollbackTargetsResponse
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) Rollback(ctx context.Context, target, artifact string) (*apitypes.RollbackResponse, error) {
	path := fmt.Sprintf("rollback/%s", target)
	request := apitypes.RollbackRequest{Artifact: artifact}
	var response apitypes.RollbackResponse
	if err := c.post(ctx, path, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) Status(ctx context.Context, target string) (*apitypes.StatusResponse, error) {
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}

	path := fmt.Sprintf("status/%s", target)
	var response apitypes.StatusResponse
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) StatusList(ctx context.Context) (*apitypes.StatusListResponse, error) {
	var response apitypes.StatusListResponse
	if err := c.get(ctx, "status", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) History(ctx context.Context, target string, limit int) (*apitypes.HistoryResponse, error) {
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}

	path := fmt.Sprintf("history/%s", target)
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var response apitypes.HistoryResponse
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) SecretsList(ctx context.Context) (*apitypes.SecretsListResponse, error) {
	var response apitypes.SecretsListResponse
	if err := c.get(ctx, "secrets", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *APIClient) SetSecret(ctx context.Context, name, value string) error {
	request := apitypes.SetSecretRequest{
		Name:  name,
		Value: value,
	}
	return c.post(ctx, "secrets", request, nil)
}

func (c *APIClient) DeleteSecret(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("secret name is required")
	}
	return c.delete(ctx, fmt.Sprintf("secrets/%s", name))
}

// Version retrieves the server's version information.
func (c *APIClient) Version(ctx context.Context) (*apitypes.VersionResponse, error) {
	var response apitypes.VersionResponse
	if err := c.get(ctx, "version", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// StreamDeploymentLogs follows one deployment's logs until it reaches a
// terminal state. Returns an error when the deployment failed.
func (c *APIClient) StreamDeploymentLogs(ctx context.Context, deploymentID string) error {
	path := fmt.Sprintf("deploy/%s/logs", deploymentID)

	failed := false
	err := c.stream(ctx, path, func(data string) (bool, error) {
		var logEntry logging.LogEntry
		if err := json.Unmarshal([]byte(data), &logEntry); err != nil {
			return false, fmt.Errorf("failed to parse log entry: %w", err)
		}

		c.displayDeploymentLogEntry(logEntry)

		if logEntry.IsDeploymentFailed {
			failed = true
			return true, nil
		}
		return logEntry.IsDeploymentComplete, nil
	})
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("deployment %s failed", deploymentID)
	}
	return nil
}

// StreamLogs streams all server logs.
func (c *APIClient) StreamLogs(ctx context.Context) error {
	return c.stream(ctx, "logs", func(data string) (bool, error) {
		var logEntry logging.LogEntry
		if err := json.Unmarshal([]byte(data), &logEntry); err != nil {
			return false, fmt.Errorf("failed to parse log entry: %w", err)
		}

		c.displayGeneralLogEntry(logEntry)

		// Never stop streaming for general logs
		return false, nil
	})
}

// displayDeploymentLogEntry formats and displays a deployment-specific log entry.
func (c *APIClient) displayDeploymentLogEntry(entry logging.LogEntry) {
	message := entry.Message

	if errorStr := extractErrorField(entry); errorStr != "" {
		message = fmt.Sprintf("%s (error: %s)", message, errorStr)
	}

	c.displayMessage(message, entry)
}

// displayGeneralLogEntry formats and displays a general server log entry.
func (c *APIClient) displayGeneralLogEntry(entry logging.LogEntry) {
	message := entry.Message

	// Add deployment context for general logs
	if entry.DeploymentID != "" {
		message = fmt.Sprintf("[%s] %s", entry.DeploymentID, message)
	}
	if entry.Target != "" {
		message = fmt.Sprintf("[%s] %s", entry.Target, message)
	}

	if errorStr := extractErrorField(entry); errorStr != "" {
		message = fmt.Sprintf("%s (error=%s)", message, errorStr)
	}

	c.displayMessage(message, entry)
}

func extractErrorField(entry logging.LogEntry) string {
	if len(entry.Fields) > 0 {
		if errorValue, hasError := entry.Fields["error"]; hasError {
			return errorValue
		}
	}
	return ""
}

// displayMessage displays a log message with formatting based on level.
func (c *APIClient) displayMessage(message string, entry logging.LogEntry) {
	switch strings.ToUpper(entry.Level) {
	case "ERROR":
		ui.Error("%s", message)
	case "WARN":
		ui.Warn("%s", message)
	case "INFO":
		if entry.IsDeploymentComplete {
			ui.Success("%s", message)
		} else {
			ui.Info("%s", message)
		}
	case "DEBUG":
		ui.Debug("%s", message)
	default:
		fmt.Printf("%s\n", message)
	}
}
