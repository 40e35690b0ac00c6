package apitypes

import (
	"time"

	"github.com/evdal/switchback/internal/config"
	"github.com/evdal/switchback/internal/deploytypes"
	"github.com/evdal/switchback/internal/store"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Service string `json:"service"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

type DeployRequest struct {
	Spec config.TargetSpec `json:"spec"`

	// Artifact overrides the image in the spec, for deploying a specific
	// version without editing the config file.
	Artifact string `json:"artifact,omitempty"`
}

type DeployResponse struct {
	DeploymentID string `json:"deploymentId"`
	Target       string `json:"target"`
	Artifact     string `json:"artifact"`
}

type RollbackRequest struct {
	// Artifact to roll back to. Empty means the previously promoted one.
	Artifact string `json:"artifact,omitempty"`
}

type RollbackResponse struct {
	DeploymentID string `json:"deploymentId"`
	Target       string `json:"target"`
	Artifact     string `json:"artifact"`
}

type RollbackTargetsResponse struct {
	Targets []deploytypes.RollbackTarget `json:"targets"`
}

type StatusResponse struct {
	Target           string    `json:"target"`
	State            string    `json:"state"`
	CurrentArtifact  string    `json:"currentArtifact,omitempty"`
	PreviousArtifact string    `json:"previousArtifact,omitempty"`
	Running          bool      `json:"running"`
	StartedAt        time.Time `json:"startedAt"`
	LastTransition   time.Time `json:"lastTransition"`
}

type StatusListResponse struct {
	Targets []StatusResponse `json:"targets"`
}

type HistoryResponse struct {
	Deployments []deploytypes.Deployment `json:"deployments"`
}

type SecretsListResponse struct {
	Secrets []store.SecretAPIResponse `json:"secrets"`
}

type SetSecretRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
