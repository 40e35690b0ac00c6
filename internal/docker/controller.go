package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/helpers"
)

// SpecStore provides the persisted runtime spec for a target and decrypts
// the secrets its environment variables reference.
type SpecStore interface {
	GetTargetSpec(ctx context.Context, target string) (json.RawMessage, error)
	GetSecretDecryptedValue(ctx context.Context, name string) (string, error)
}

// Controller runs target artifacts as labeled containers on the local Docker
// daemon. It satisfies runtime.Controller.
type Controller struct {
	cli    *client.Client
	specs  SpecStore
	logger *slog.Logger
}

func NewController(cli *client.Client, specs SpecStore, logger *slog.Logger) *Controller {
	return &Controller{
		cli:    cli,
		specs:  specs,
		logger: logger,
	}
}

// Deploy starts the given artifact for the target. If a container for this
// exact target and artifact is already running it does nothing.
func (c *Controller) Deploy(ctx context.Context, target, artifact string) error {
	spec, err := c.loadSpec(ctx, target)
	if err != nil {
		return err
	}

	running, err := findContainers(ctx, c.cli, target, artifact, false)
	if err != nil {
		return err
	}
	if len(running) > 0 {
		c.logger.Debug("Container already running", "target", target, "artifact", artifact)
		return nil
	}

	if err := EnsureNetwork(ctx, c.cli); err != nil {
		return err
	}
	if err := EnsureImage(ctx, c.cli, c.logger, artifact); err != nil {
		return err
	}

	// Clear out stopped leftovers so the container name is free.
	if _, err := stopAndRemoveContainers(ctx, c.cli, target, artifact); err != nil {
		return fmt.Errorf("failed to clean up stopped containers: %w", err)
	}

	return c.runContainer(ctx, target, artifact, spec)
}

// Retire stops and removes the containers running the given artifact. A
// retire of something that is not running is not an error.
func (c *Controller) Retire(ctx context.Context, target, artifact string) error {
	removed, err := stopAndRemoveContainers(ctx, c.cli, target, artifact)
	for _, id := range removed {
		c.logger.Debug("Removed container", "target", target, "container", helpers.SafeIDPrefix(id))
	}
	return err
}

// IsRunning reports whether a container for the target and artifact is up.
func (c *Controller) IsRunning(ctx context.Context, target, artifact string) (bool, error) {
	running, err := findContainers(ctx, c.cli, target, artifact, false)
	if err != nil {
		return false, err
	}
	return len(running) > 0, nil
}

func (c *Controller) loadSpec(ctx context.Context, target string) (*config.TargetSpec, error) {
	raw, err := c.specs.GetTargetSpec(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec for target '%s': %w", target, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("no spec registered for target '%s'", target)
	}
	var spec config.TargetSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec for target '%s': %w", target, err)
	}
	spec.Normalize()
	return &spec, nil
}

func (c *Controller) runContainer(ctx context.Context, target, artifact string, spec *config.TargetSpec) (err error) {
	cl := config.ContainerLabels{
		Target:          target,
		Artifact:        artifact,
		Port:            spec.Port.String(),
		HealthCheckPath: spec.HealthCheckPath,
		Role:            config.AppLabelRole,
	}
	labels := cl.ToLabels()

	resolved, err := config.ResolveSecrets(ctx, *spec, c.specs)
	if err != nil {
		return fmt.Errorf("failed to resolve environment variables: %w", err)
	}
	var envVars []string
	for i := range resolved.Env {
		value, err := resolved.Env[i].GetValue()
		if err != nil {
			return fmt.Errorf("failed to get value for env var '%s': %w", resolved.Env[i].Name, err)
		}
		envVars = append(envVars, fmt.Sprintf("%s=%s", resolved.Env[i].Name, value))
	}

	networkMode := container.NetworkMode(constants.DockerNetwork)
	if spec.NetworkMode != "" {
		networkMode = container.NetworkMode(spec.NetworkMode)
	}
	hostConfig := &container.HostConfig{
		NetworkMode:   networkMode,
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
		Binds:         spec.Volumes,
	}
	containerConfig := &container.Config{
		Image:  artifact,
		Labels: labels,
		Env:    envVars,
	}

	containerName := fmt.Sprintf("%s-switchback-%s", target, helpers.SanitizeString(artifact))
	resp, err := c.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	// Remove the container again if starting it fails, so a retry does not
	// trip over a half-created leftover.
	defer func() {
		if err != nil && resp.ID != "" {
			removeErr := c.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
			if removeErr != nil {
				c.logger.Warn("Failed to clean up container after error", "container", helpers.SafeIDPrefix(resp.ID), "error", removeErr)
			}
		}
	}()

	if err = c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	c.logger.Debug("Started container", "target", target, "artifact", artifact, "container", helpers.SafeIDPrefix(resp.ID))
	return nil
}
