package runtime

import "context"

// Controller drives the process lifecycle for artifacts on a single
// deployment target. The orchestrator never touches the runtime directly;
// everything goes through this interface so it can be faked in tests.
type Controller interface {
	// Deploy brings the artifact to a running state on the target. It is
	// idempotent: deploying an already-running artifact is a no-op success.
	Deploy(ctx context.Context, target, artifact string) error

	// Retire stops the artifact on the target. Best-effort: the caller
	// logs failures but does not fail an already-promoted deployment.
	Retire(ctx context.Context, target, artifact string) error

	// IsRunning reports whether the artifact is currently executing on
	// the target.
	IsRunning(ctx context.Context, target, artifact string) (bool, error)
}
