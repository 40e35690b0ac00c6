package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

const (
	FieldDeploymentID = "deploymentID"
	FieldTarget       = "target"

	// Marker attributes that tell log stream consumers a deployment
	// reached its terminal state.
	fieldDeploymentComplete = "deploymentComplete"
	fieldDeploymentFailed   = "deploymentFailed"
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a logger that writes to stdout and, when a broker is
// provided, forwards every record to stream subscribers.
func NewLogger(level slog.Level, broker *Broker) *slog.Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}
	if broker != nil {
		handlers = append(handlers, &brokerHandler{broker: broker, level: level})
	}
	return slog.New(&multiHandler{handlers: handlers})
}

// NewDeploymentLogger returns a logger scoped to one deployment. Records
// carry the deployment ID so stream subscribers can filter on it.
func NewDeploymentLogger(deploymentID string, level slog.Level, broker *Broker) *slog.Logger {
	return NewLogger(level, broker).With(FieldDeploymentID, deploymentID)
}

// LogDeploymentComplete emits the final success record for a deployment.
// Stream consumers close their connection when they see it.
func LogDeploymentComplete(logger *slog.Logger, target, msg string) {
	logger.Info(msg, FieldTarget, target, fieldDeploymentComplete, true)
}

// LogDeploymentFailed emits the final failure record for a deployment.
func LogDeploymentFailed(logger *slog.Logger, target, msg string, err error) {
	logger.Error(msg, "error", err, FieldTarget, target, fieldDeploymentFailed, true)
}

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
