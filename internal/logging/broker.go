package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LogEntry is the wire format for streamed log records.
type LogEntry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Level        string            `json:"level"`
	Message      string            `json:"message"`
	DeploymentID string            `json:"deploymentId,omitempty"`
	Target       string            `json:"target,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`

	IsDeploymentComplete bool `json:"isDeploymentComplete,omitempty"`
	IsDeploymentFailed   bool `json:"isDeploymentFailed,omitempty"`
}

const subscriberBuffer = 100

// Broker fans log entries out to stream subscribers. Subscribers can follow
// a single deployment or everything. Slow subscribers drop entries rather
// than stalling the publisher.
type Broker struct {
	mu          sync.RWMutex
	nextID      int
	general     map[int]chan LogEntry
	deployments map[string]map[int]chan LogEntry
}

func NewBroker() *Broker {
	return &Broker{
		general:     make(map[int]chan LogEntry),
		deployments: make(map[string]map[int]chan LogEntry),
	}
}

// SubscribeGeneral registers a subscriber for all log entries.
func (b *Broker) SubscribeGeneral() (<-chan LogEntry, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan LogEntry, subscriberBuffer)
	b.general[b.nextID] = ch
	return ch, b.nextID
}

func (b *Broker) UnsubscribeGeneral(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.general[id]; ok {
		delete(b.general, id)
		close(ch)
	}
}

// SubscribeDeployment registers a subscriber for one deployment's entries.
func (b *Broker) SubscribeDeployment(deploymentID string) (<-chan LogEntry, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan LogEntry, subscriberBuffer)
	if b.deployments[deploymentID] == nil {
		b.deployments[deploymentID] = make(map[int]chan LogEntry)
	}
	b.deployments[deploymentID][b.nextID] = ch
	return ch, b.nextID
}

func (b *Broker) UnsubscribeDeployment(deploymentID string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.deployments[deploymentID]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		delete(subs, id)
		close(ch)
	}
	if len(subs) == 0 {
		delete(b.deployments, deploymentID)
	}
}

// Publish delivers an entry to every matching subscriber without blocking.
func (b *Broker) Publish(entry LogEntry) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.general {
		select {
		case ch <- entry:
		default:
		}
	}
	if entry.DeploymentID == "" {
		return
	}
	for _, ch := range b.deployments[entry.DeploymentID] {
		select {
		case ch <- entry:
		default:
		}
	}
}

// brokerHandler adapts the broker to slog.Handler so loggers publish to
// stream subscribers as a side effect of normal logging.
type brokerHandler struct {
	broker *Broker
	level  slog.Level
	attrs  []slog.Attr
}

func (h *brokerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *brokerHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := LogEntry{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Fields:    make(map[string]string),
	}

	collect := func(a slog.Attr) {
		switch a.Key {
		case FieldDeploymentID:
			entry.DeploymentID = a.Value.String()
		case FieldTarget:
			entry.Target = a.Value.String()
		case fieldDeploymentComplete:
			entry.IsDeploymentComplete = a.Value.Kind() == slog.KindBool && a.Value.Bool()
		case fieldDeploymentFailed:
			entry.IsDeploymentFailed = a.Value.Kind() == slog.KindBool && a.Value.Bool()
		default:
			entry.Fields[a.Key] = a.Value.String()
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	h.broker.Publish(entry)
	return nil
}

func (h *brokerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &brokerHandler{broker: h.broker, level: h.level, attrs: merged}
}

func (h *brokerHandler) WithGroup(name string) slog.Handler {
	// Groups are not used by our loggers; entries stay flat.
	return h
}
