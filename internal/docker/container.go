package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/evdal/switchback/internal/config"
)

const stopTimeoutSeconds = 20

func targetFilters(target, artifact string) filters.Args {
	filterArgs := filters.NewArgs()
	filterArgs.Add("label", fmt.Sprintf("%s=%s", config.LabelTarget, target))
	if artifact != "" {
		filterArgs.Add("label", fmt.Sprintf("%s=%s", config.LabelArtifact, artifact))
	}
	return filterArgs
}

// findContainers lists containers for a target, optionally narrowed to one
// artifact. With all set, stopped containers are included.
func findContainers(ctx context.Context, cli *client.Client, target, artifact string, all bool) ([]container.Summary, error) {
	containerList, err := cli.ContainerList(ctx, container.ListOptions{
		Filters: targetFilters(target, artifact),
		All:     all,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return containerList, nil
}

// stopAndRemoveContainers stops and removes every container for the given
// target and artifact. Failures on individual containers are collected so one
// stuck container does not keep the rest running.
func stopAndRemoveContainers(ctx context.Context, cli *client.Client, target, artifact string) ([]string, error) {
	containerList, err := findContainers(ctx, cli, target, artifact, true)
	if err != nil {
		return nil, err
	}

	removedIDs := []string{}
	var removalErrors []error
	for _, containerInfo := range containerList {
		timeout := stopTimeoutSeconds
		stopOptions := container.StopOptions{
			Timeout: &timeout,
		}
		if err := cli.ContainerStop(ctx, containerInfo.ID, stopOptions); err != nil {
			removalErrors = append(removalErrors, fmt.Errorf("failed to stop container %s: %w", containerInfo.ID, err))
			continue
		}
		if err := cli.ContainerRemove(ctx, containerInfo.ID, container.RemoveOptions{Force: true}); err != nil {
			removalErrors = append(removalErrors, fmt.Errorf("failed to remove container %s: %w", containerInfo.ID, err))
			continue
		}
		removedIDs = append(removedIDs, containerInfo.ID)
	}

	if len(removalErrors) > 0 {
		return removedIDs, errors.Join(removalErrors...)
	}
	return removedIDs, nil
}
