package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/probe"
)

// ProbeAddress returns an address resolver that points health probes at the
// running container for a target. The port and health check path come from
// the container's own labels, so probes always match what was deployed.
func ProbeAddress(cli *client.Client) probe.AddressFunc {
	return func(ctx context.Context, target string) (string, error) {
		running, err := findContainers(ctx, cli, target, "", false)
		if err != nil {
			return "", err
		}
		if len(running) == 0 {
			return "", fmt.Errorf("no running container for target '%s'", target)
		}

		containerInfo, err := cli.ContainerInspect(ctx, running[0].ID)
		if err != nil {
			return "", fmt.Errorf("failed to inspect container: %w", err)
		}

		labels, err := config.ParseContainerLabels(containerInfo.Config.Labels)
		if err != nil {
			return "", fmt.Errorf("failed to parse container labels: %w", err)
		}

		networkName := constants.DockerNetwork
		if mode := containerInfo.HostConfig.NetworkMode; mode.IsUserDefined() {
			networkName = string(mode)
		}
		targetIP, err := ContainerNetworkIP(containerInfo, networkName)
		if err != nil {
			return "", fmt.Errorf("failed to get container IP address: %w", err)
		}

		return fmt.Sprintf("http://%s:%s%s", targetIP, labels.Port, labels.HealthCheckPath), nil
	}
}
