package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/deploytypes"
	"github.com/evdal/switchback/internal/notify"
	"github.com/evdal/switchback/internal/probe"
	"github.com/evdal/switchback/internal/runtime"
)

// RecordStore persists the per-target DeploymentRecord and the derived
// deployment history. Satisfied by the sqlite-backed store.
type RecordStore interface {
	GetRecord(ctx context.Context, target string) (*deploytypes.DeploymentRecord, error)
	SaveRecord(ctx context.Context, record *deploytypes.DeploymentRecord) error
	SaveDeployment(ctx context.Context, deployment deploytypes.Deployment) error
	PruneOldDeployments(ctx context.Context, target string, keep int) error
}

// Orchestrator runs the deploy, verify, rollback workflow for single
// targets. Each request is one sequential workflow; requests for distinct
// targets may run concurrently, each owning its target's record.
type Orchestrator struct {
	controller   runtime.Controller
	prober       probe.Prober
	notifier     notify.Notifier
	store        RecordStore
	logger       *slog.Logger
	historyLimit int

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(controller runtime.Controller, prober probe.Prober, notifier notify.Notifier, store RecordStore, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		controller:   controller,
		prober:       prober,
		notifier:     notifier,
		store:        store,
		logger:       logger,
		historyLimit: constants.DefaultHistoryLimit,
		inflight:     make(map[string]struct{}),
	}
}

// SetHistoryLimit overrides how many history rows are kept per target.
// Values below 1 are ignored.
func (o *Orchestrator) SetHistoryLimit(limit int) {
	if limit > 0 {
		o.historyLimit = limit
	}
}

// Admission is an exclusive claim on a target, taken before a caller
// performs any side effects of its own so a rejected concurrent request
// leaves nothing behind.
type Admission struct {
	o        *Orchestrator
	target   string
	released atomic.Bool
}

// Admit claims the target for an upcoming Deploy. A target with a
// deployment already in flight is rejected with ErrDeploymentInProgress.
func (o *Orchestrator) Admit(target string) (*Admission, error) {
	if target == "" {
		return nil, fmt.Errorf("target cannot be empty")
	}
	if !o.acquire(target) {
		return nil, fmt.Errorf("%s: %w", target, ErrDeploymentInProgress)
	}
	return &Admission{o: o, target: target}, nil
}

// Release gives the claim back without deploying. Calling it after Deploy,
// or more than once, is a no-op.
func (a *Admission) Release() {
	if a.released.CompareAndSwap(false, true) {
		a.o.release(a.target)
	}
}

// Deploy runs the deployment workflow under this claim and releases it
// when the workflow reaches a terminal state.
func (a *Admission) Deploy(ctx context.Context, deploymentID, artifact string, policy Policy) (*deploytypes.DeploymentRecord, error) {
	defer a.Release()
	return a.o.run(ctx, deploymentID, a.target, artifact, policy)
}

// Deploy pushes the artifact to the target, probes for health, and either
// promotes it or reverts to the previously running artifact. It returns
// the terminal DeploymentRecord; when the requested artifact did not end
// up promoted, the error is a *DeployError describing the failed phase.
//
// A request for a target that already has a deployment in flight is
// rejected with ErrDeploymentInProgress before any state transition.
func (o *Orchestrator) Deploy(ctx context.Context, deploymentID, target, artifact string, policy Policy) (*deploytypes.DeploymentRecord, error) {
	admission, err := o.Admit(target)
	if err != nil {
		return nil, err
	}
	return admission.Deploy(ctx, deploymentID, artifact, policy)
}

func (o *Orchestrator) run(ctx context.Context, deploymentID, target, artifact string, policy Policy) (*deploytypes.DeploymentRecord, error) {
	if artifact == "" {
		return nil, fmt.Errorf("artifact reference cannot be empty")
	}
	policy = policy.Normalize()

	if deploymentID == "" {
		deploymentID = CreateDeploymentID()
	}
	logger := o.logger.With("target", target, "deploymentID", deploymentID)

	record, err := o.store.GetRecord(ctx, target)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &deploytypes.DeploymentRecord{Target: target, State: deploytypes.StateIdle}
	}

	// The previously running artifact is the rollback target until the
	// new one is promoted.
	previous := record.CurrentArtifact
	redeploy := previous == artifact

	record.StartedAt = time.Now()
	if err := o.transition(ctx, record, deploytypes.StateDeploying); err != nil {
		return record, err
	}
	o.emit(ctx, target, notify.KindStarted, map[string]any{
		"artifact":     artifact,
		"deploymentID": deploymentID,
	})
	logger.Info("Deployment started", "artifact", artifact)

	if startErr := o.startArtifact(ctx, target, artifact); startErr != nil {
		// The artifact never reached running; go straight to rollback
		// without consuming a probe attempt.
		logger.Error("Artifact failed to start", "artifact", artifact, "error", startErr)
		return o.rollback(ctx, record, deploymentID, artifact, previous, policy, logger, &DeployError{
			Phase:    PhaseStart,
			Target:   target,
			Artifact: artifact,
			Err:      startErr,
		})
	}

	if err := o.transition(ctx, record, deploytypes.StateProbing); err != nil {
		return record, err
	}
	healthy, last := o.probeUntilHealthy(ctx, target, artifact, policy, false, logger)
	if !healthy {
		probeErr := fmt.Errorf("no healthy result after %d probe attempts (last: %s)", policy.MaxProbeAttempts, last.Outcome)
		if last.Message != "" {
			probeErr = fmt.Errorf("no healthy result after %d probe attempts (last: %s, %s)", policy.MaxProbeAttempts, last.Outcome, last.Message)
		}
		logger.Error("Probe budget exhausted", "artifact", artifact, "error", probeErr)
		return o.rollback(ctx, record, deploymentID, artifact, previous, policy, logger, &DeployError{
			Phase:    PhaseProbe,
			Target:   target,
			Artifact: artifact,
			Err:      probeErr,
		})
	}

	// Promote. Retiring the old artifact is best-effort: promotion has
	// already happened, a leftover process is an operational nuisance,
	// not a failed deployment.
	if err := o.transition(ctx, record, deploytypes.StatePromoted); err != nil {
		return record, err
	}
	if previous != "" && !redeploy {
		if err := o.controller.Retire(ctx, target, previous); err != nil {
			logger.Warn("Failed to retire previous artifact", "artifact", previous, "error", err)
		}
		record.PreviousArtifact = previous
	}
	record.CurrentArtifact = artifact
	if err := o.transition(ctx, record, deploytypes.StateStable); err != nil {
		return record, err
	}
	o.emit(ctx, target, notify.KindPromoted, map[string]any{
		"artifact": artifact,
		"previous": record.PreviousArtifact,
	})
	o.saveHistory(ctx, deploymentID, target, artifact, deploytypes.StateStable, "", logger)
	logger.Info("Deployment promoted", "artifact", artifact)

	return record, nil
}

// rollback reverts the target to the previously running artifact and
// re-probes it with the same policy as a normal deploy. It always drives
// the record to a terminal state and returns cause as the request error.
func (o *Orchestrator) rollback(ctx context.Context, record *deploytypes.DeploymentRecord, deploymentID, failedArtifact, previous string, policy Policy, logger *slog.Logger, cause *DeployError) (*deploytypes.DeploymentRecord, error) {
	// Once rollback processing begins it runs to a terminal state, even
	// if the caller has given up, so the target is not left in an
	// undefined runtime condition.
	ctx = context.WithoutCancel(ctx)

	if err := o.transition(ctx, record, deploytypes.StateRollingBack); err != nil {
		return record, err
	}

	rollbackTo := previous
	if rollbackTo == failedArtifact {
		// A redeploy of the current artifact failed; the only fallback
		// left is the one promoted before it.
		rollbackTo = record.PreviousArtifact
	}
	if rollbackTo == "" {
		// First-ever deploy to this target failed. Nothing to revert to.
		logger.Error("No previous artifact to roll back to")
		o.fail(ctx, record, deploymentID, failedArtifact, "", cause, logger)
		return record, cause
	}
	cause.RollbackArtifact = rollbackTo
	logger.Info("Rolling back", "artifact", rollbackTo)

	// Stop whatever the failed artifact left behind before restarting the
	// fallback. A retire failure is not fatal to the rollback itself.
	if rollbackTo != failedArtifact {
		if err := o.controller.Retire(ctx, record.Target, failedArtifact); err != nil {
			logger.Warn("Failed to retire unhealthy artifact", "artifact", failedArtifact, "error", err)
		}
	}

	if startErr := o.startArtifact(ctx, record.Target, rollbackTo); startErr != nil {
		logger.Error("Rollback artifact failed to start", "artifact", rollbackTo, "error", startErr)
		cause.Phase = PhaseRollback
		cause.RollbackErr = startErr
		o.fail(ctx, record, deploymentID, failedArtifact, rollbackTo, cause, logger)
		return record, cause
	}

	healthy, last := o.probeUntilHealthy(ctx, record.Target, rollbackTo, policy, true, logger)
	if !healthy {
		logger.Error("Rollback probe budget exhausted", "artifact", rollbackTo, "outcome", last.Outcome)
		cause.Phase = PhaseRollback
		cause.RollbackErr = fmt.Errorf("no healthy result after %d probe attempts", policy.MaxProbeAttempts)
		o.fail(ctx, record, deploymentID, failedArtifact, rollbackTo, cause, logger)
		return record, cause
	}

	// The record's current artifact was never advanced to the failed one,
	// so reverting is a matter of confirming the state.
	record.CurrentArtifact = rollbackTo
	if err := o.transition(ctx, record, deploytypes.StateStable); err != nil {
		return record, err
	}
	o.emit(ctx, record.Target, notify.KindRolledBack, map[string]any{
		"artifact":       rollbackTo,
		"failedArtifact": failedArtifact,
	})
	o.saveHistory(ctx, deploymentID, record.Target, rollbackTo, deploytypes.StateStable, failedArtifact, logger)
	logger.Info("Rollback complete", "artifact", rollbackTo)

	cause.RolledBack = true
	return record, cause
}

// fail drives the record to Failed and emits the terminal event naming
// both the artifact that failed to promote and the one that failed to
// roll back to, so an operator can act manually.
func (o *Orchestrator) fail(ctx context.Context, record *deploytypes.DeploymentRecord, deploymentID, failedArtifact, rollbackArtifact string, cause *DeployError, logger *slog.Logger) {
	if err := o.transition(ctx, record, deploytypes.StateFailed); err != nil {
		logger.Error("Failed to persist failed state", "error", err)
	}
	payload := map[string]any{
		"artifact": failedArtifact,
		"error":    cause.Error(),
	}
	if rollbackArtifact != "" {
		payload["rollbackArtifact"] = rollbackArtifact
	}
	o.emit(ctx, record.Target, notify.KindFailed, payload)
	o.saveHistory(ctx, deploymentID, record.Target, failedArtifact, deploytypes.StateFailed, "", logger)
}

// startArtifact asks the controller to deploy and then confirms the
// artifact is actually executing. The record never claims a version is
// current without this confirmation.
func (o *Orchestrator) startArtifact(ctx context.Context, target, artifact string) error {
	if err := o.controller.Deploy(ctx, target, artifact); err != nil {
		return fmt.Errorf("failed to start artifact: %w", err)
	}
	running, err := o.controller.IsRunning(ctx, target, artifact)
	if err != nil {
		return fmt.Errorf("failed to confirm artifact is running: %w", err)
	}
	if !running {
		return fmt.Errorf("artifact %s never reached running state on %s", artifact, target)
	}
	return nil
}

// probeUntilHealthy polls the prober on the policy's fixed interval until
// a healthy result or the attempt budget runs out. Cancellation is
// honored here and treated as exhaustion.
func (o *Orchestrator) probeUntilHealthy(ctx context.Context, target, artifact string, policy Policy, rollback bool, logger *slog.Logger) (bool, probe.Result) {
	if policy.StartupGracePeriod > 0 {
		select {
		case <-ctx.Done():
			return false, probe.Result{
				Outcome:    probe.Unreachable,
				ObservedAt: time.Now(),
				Message:    "deployment canceled during startup grace period",
			}
		case <-time.After(policy.StartupGracePeriod):
		}
	}

	var last probe.Result
	for attempt := 1; attempt <= policy.MaxProbeAttempts; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, policy.ProbeTimeout)
		last = o.prober.Probe(probeCtx, target)
		cancel()

		payload := map[string]any{
			"artifact": artifact,
			"attempt":  attempt,
			"outcome":  string(last.Outcome),
		}
		if last.Message != "" {
			payload["message"] = last.Message
		}
		if rollback {
			payload["rollback"] = true
		}
		o.emit(ctx, target, notify.KindProbeAttempt, payload)

		if last.Outcome == probe.Healthy {
			logger.Info("Probe healthy", "artifact", artifact, "attempt", attempt)
			return true, last
		}
		// Unreachable retries the same as unhealthy; the distinction is
		// kept in the event payload for diagnostics.
		logger.Warn("Probe attempt failed",
			"artifact", artifact, "attempt", attempt, "outcome", last.Outcome, "message", last.Message)

		if attempt < policy.MaxProbeAttempts {
			select {
			case <-ctx.Done():
				last = probe.Result{
					Outcome:    probe.Unreachable,
					ObservedAt: time.Now(),
					Message:    "deployment canceled while probing",
				}
				return false, last
			case <-time.After(policy.ProbeInterval):
			}
		}
	}
	return false, last
}

func (o *Orchestrator) transition(ctx context.Context, record *deploytypes.DeploymentRecord, state deploytypes.State) error {
	record.State = state
	record.LastTransition = time.Now()
	if err := o.store.SaveRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to persist %s transition for %s: %w", state, record.Target, err)
	}
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, target string, kind notify.EventKind, payload map[string]any) {
	o.notifier.Emit(ctx, notify.Event{
		Target:    target,
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (o *Orchestrator) saveHistory(ctx context.Context, deploymentID, target, artifact string, state deploytypes.State, rolledBackFrom string, logger *slog.Logger) {
	err := o.store.SaveDeployment(ctx, deploytypes.Deployment{
		ID:             deploymentID,
		Target:         target,
		Artifact:       artifact,
		State:          state,
		RolledBackFrom: rolledBackFrom,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to write deployment history", "error", err)
		return
	}
	if err := o.store.PruneOldDeployments(ctx, target, o.historyLimit); err != nil {
		logger.Warn("Failed to prune old deployments", "error", err)
	}
}

func (o *Orchestrator) acquire(target string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[target]; busy {
		return false
	}
	o.inflight[target] = struct{}{}
	return true
}

func (o *Orchestrator) release(target string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, target)
}
