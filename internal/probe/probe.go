package probe

import (
	"context"
	"time"
)

// Outcome classifies a single health check attempt.
type Outcome string

const (
	Healthy     Outcome = "healthy"
	Unhealthy   Outcome = "unhealthy"
	Unreachable Outcome = "unreachable"
)

// Result is produced per probe attempt and not persisted beyond the
// attempt log.
type Result struct {
	Outcome    Outcome
	ObservedAt time.Time
	Message    string
}

// Prober issues one liveness check against the service running on a target.
// Implementations must not return transport failures as errors; an
// unreachable service is a normal Unreachable outcome.
type Prober interface {
	Probe(ctx context.Context, target string) Result
}
