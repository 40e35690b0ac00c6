package config

import (
	"fmt"

	"github.com/evdal/switchback/internal/constants"
)

const (
	LabelTarget       = "switchback.target"
	LabelArtifact     = "switchback.artifact"
	LabelDeploymentID = "switchback.deployment-id"

	// Optional, default to constants.DefaultContainerPort and
	// constants.DefaultHealthCheckPath when absent.
	LabelPort            = "switchback.port"
	LabelHealthCheckPath = "switchback.health-check-path"

	// Used to identify the role of the container.
	LabelRole = "switchback.role"
)

const (
	AppLabelRole = "app"
)

type ContainerLabels struct {
	Target          string
	Artifact        string
	DeploymentID    string
	Port            string
	HealthCheckPath string
	Role            string
}

// Parse from docker labels to ContainerLabels struct.
func ParseContainerLabels(labels map[string]string) (*ContainerLabels, error) {
	cl := &ContainerLabels{
		Target:       labels[LabelTarget],
		Artifact:     labels[LabelArtifact],
		DeploymentID: labels[LabelDeploymentID],
		Role:         labels[LabelRole],
	}

	if v, ok := labels[LabelPort]; ok {
		cl.Port = v
	} else {
		cl.Port = constants.DefaultContainerPort
	}

	if v, ok := labels[LabelHealthCheckPath]; ok {
		cl.HealthCheckPath = v
	} else {
		cl.HealthCheckPath = constants.DefaultHealthCheckPath
	}

	if cl.Target == "" {
		return nil, fmt.Errorf("missing required label: %s", LabelTarget)
	}
	if cl.Artifact == "" {
		return nil, fmt.Errorf("missing required label: %s", LabelArtifact)
	}

	return cl, nil
}

// Convert ContainerLabels struct to docker labels.
func (cl *ContainerLabels) ToLabels() map[string]string {
	labels := map[string]string{
		LabelTarget:   cl.Target,
		LabelArtifact: cl.Artifact,
		LabelRole:     cl.Role,
	}
	if cl.DeploymentID != "" {
		labels[LabelDeploymentID] = cl.DeploymentID
	}
	if cl.Port != "" {
		labels[LabelPort] = cl.Port
	}
	if cl.HealthCheckPath != "" {
		labels[LabelHealthCheckPath] = cl.HealthCheckPath
	}
	return labels
}
