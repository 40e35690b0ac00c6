package orchestrator

import (
	"errors"
	"fmt"
)

// ErrDeploymentInProgress is returned when a deploy request arrives for a
// target that already has one in flight. The request is rejected before
// any state transition; it is never queued.
var ErrDeploymentInProgress = errors.New("deployment already in progress for this target")

// Phase names the part of the workflow a deployment failed in.
type Phase string

const (
	// PhaseStart: the runtime controller could not bring the new artifact
	// to a running state.
	PhaseStart Phase = "start"
	// PhaseProbe: the new artifact started but exhausted its probe budget
	// without a healthy result.
	PhaseProbe Phase = "probe"
	// PhaseRollback: reverting to the previous artifact also failed.
	// Manual intervention is required; there is no known-good target left.
	PhaseRollback Phase = "rollback"
)

// DeployError is the structured failure returned alongside the terminal
// DeploymentRecord, so callers can see which phase failed and which
// artifacts were involved.
type DeployError struct {
	Phase            Phase
	Target           string
	Artifact         string // the artifact that failed to promote
	RollbackArtifact string // the artifact rolled back to (or attempted)
	RolledBack       bool   // rollback completed and the target is stable again
	Err              error  // failure of the requested artifact
	RollbackErr      error  // set when the rollback itself failed
}

func (e *DeployError) Error() string {
	msg := fmt.Sprintf("deploy of %s to %s failed in %s phase: %v", e.Artifact, e.Target, e.Phase, e.Err)
	if e.RolledBack {
		return fmt.Sprintf("%s (rolled back to %s)", msg, e.RollbackArtifact)
	}
	if e.RollbackErr != nil {
		return fmt.Sprintf("%s; rollback to %s failed: %v", msg, e.RollbackArtifact, e.RollbackErr)
	}
	return msg
}

func (e *DeployError) Unwrap() error {
	return e.Err
}
