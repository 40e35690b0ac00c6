package notify

import (
	"context"
	"time"
)

// EventKind identifies a point in the deployment lifecycle.
type EventKind string

const (
	KindStarted      EventKind = "started"
	KindProbeAttempt EventKind = "probe_attempt"
	KindPromoted     EventKind = "promoted"
	KindRolledBack   EventKind = "rolled_back"
	KindFailed       EventKind = "failed"
)

// Event is emitted by the orchestrator in strict causal order: Started
// first, ProbeAttempt entries in attempt order, then exactly one terminal
// event per deployment request. Events flow one way and are never read
// back by the orchestrator.
type Event struct {
	Target    string         `json:"target"`
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Notifier delivers events to an external channel. Delivery is
// fire-and-forget: implementations log failures and never surface them to
// the deployment flow, since notification is observability, not a
// correctness gate.
type Notifier interface {
	Emit(ctx context.Context, event Event)
}
