package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/evdal/switchback/internal/constants"
)

func CreateNetwork(ctx context.Context, cli *client.Client) error {
	options := network.CreateOptions{
		Driver:     "bridge",
		Attachable: true,
		Labels: map[string]string{
			"created-by": "switchback",
		},
	}
	_, err := cli.NetworkCreate(ctx, constants.DockerNetwork, options)
	if err != nil {
		return fmt.Errorf("failed to create Docker network: %w", err)
	}
	return nil
}

func EnsureNetwork(ctx context.Context, cli *client.Client) error {
	networks, err := cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list Docker networks: %w", err)
	}

	for _, nw := range networks {
		if nw.Name == constants.DockerNetwork {
			return nil
		}
	}

	if err := CreateNetwork(ctx, cli); err != nil {
		return fmt.Errorf("failed to create Docker network: %w", err)
	}
	return nil
}

// ContainerNetworkIP extracts the container's IP address on the given network.
func ContainerNetworkIP(containerInfo container.InspectResponse, networkName string) (string, error) {
	if _, exists := containerInfo.NetworkSettings.Networks[networkName]; !exists {
		return "", fmt.Errorf("specified network not found: %s", networkName)
	}
	if containerInfo.State == nil || !containerInfo.State.Running {
		return "", fmt.Errorf("container is not running")
	}
	ipAddress := containerInfo.NetworkSettings.Networks[networkName].IPAddress
	if ipAddress == "" {
		return "", fmt.Errorf("container has no IP address on the specified network: %s", networkName)
	}

	return ipAddress, nil
}
