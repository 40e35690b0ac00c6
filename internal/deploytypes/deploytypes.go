package deploytypes

import "time"

// State is a deployment state machine state for a single target.
type State string

const (
	StateIdle        State = "idle"
	StateDeploying   State = "deploying"
	StateProbing     State = "probing"
	StatePromoted    State = "promoted"
	StateRollingBack State = "rolling_back"
	StateStable      State = "stable"
	StateFailed      State = "failed"
)

func (s State) Terminal() bool {
	return s == StateStable || s == StateFailed
}

// DeploymentRecord is the durable source of truth for what is live on a
// target and what to roll back to. Exactly one record exists per target.
type DeploymentRecord struct {
	Target           string    `json:"target"`
	CurrentArtifact  string    `json:"currentArtifact"`
	PreviousArtifact string    `json:"previousArtifact,omitempty"`
	State            State     `json:"state"`
	StartedAt        time.Time `json:"startedAt"`
	LastTransition   time.Time `json:"lastTransition"`
}

// Deployment is one row of deployment history for a target. History is a
// derived view; the record above stays authoritative for rollback targets.
type Deployment struct {
	ID             string    `json:"id"`
	Target         string    `json:"target"`
	Artifact       string    `json:"artifact"`
	State          State     `json:"state"`
	RolledBackFrom string    `json:"rolledBackFrom,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RollbackTarget is an artifact a target can be rolled back to.
type RollbackTarget struct {
	Artifact     string    `json:"artifact"`
	DeploymentID string    `json:"deploymentId"`
	CreatedAt    time.Time `json:"createdAt"`
	IsCurrent    bool      `json:"isCurrent,omitempty"`
}
