package logging

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEntry(t *testing.T, ch <-chan LogEntry) LogEntry {
	t.Helper()
	select {
	case entry := <-ch:
		return entry
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log entry")
		return LogEntry{}
	}
}

func TestBrokerGeneralSubscription(t *testing.T) {
	broker := NewBroker()
	ch, id := broker.SubscribeGeneral()
	defer broker.UnsubscribeGeneral(id)

	broker.Publish(LogEntry{Message: "hello"})

	entry := receiveEntry(t, ch)
	assert.Equal(t, "hello", entry.Message)
}

func TestBrokerDeploymentSubscriptionFilters(t *testing.T) {
	broker := NewBroker()
	ch, id := broker.SubscribeDeployment("dep-1")
	defer broker.UnsubscribeDeployment("dep-1", id)

	broker.Publish(LogEntry{Message: "other", DeploymentID: "dep-2"})
	broker.Publish(LogEntry{Message: "mine", DeploymentID: "dep-1"})

	entry := receiveEntry(t, ch)
	assert.Equal(t, "mine", entry.Message)
	assert.Empty(t, ch)
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	broker := NewBroker()
	ch, id := broker.SubscribeGeneral()

	broker.UnsubscribeGeneral(id)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	broker.Publish(LogEntry{Message: "late"})
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	broker := NewBroker()
	ch, id := broker.SubscribeGeneral()
	defer broker.UnsubscribeGeneral(id)

	for i := 0; i < subscriberBuffer+10; i++ {
		broker.Publish(LogEntry{Message: fmt.Sprintf("entry %d", i)})
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestLoggerPublishesToBroker(t *testing.T) {
	broker := NewBroker()
	ch, id := broker.SubscribeDeployment("dep-42")
	defer broker.UnsubscribeDeployment("dep-42", id)

	logger := NewDeploymentLogger("dep-42", slog.LevelInfo, broker)
	logger.Info("Deploying artifact", "artifact", "app:v2")

	entry := receiveEntry(t, ch)
	assert.Equal(t, "Deploying artifact", entry.Message)
	assert.Equal(t, "dep-42", entry.DeploymentID)
	require.NotNil(t, entry.Fields)
	assert.Equal(t, "app:v2", entry.Fields["artifact"])
	assert.False(t, entry.IsDeploymentComplete)
	assert.False(t, entry.IsDeploymentFailed)
}

func TestLoggerRespectsLevel(t *testing.T) {
	broker := NewBroker()
	ch, id := broker.SubscribeGeneral()
	defer broker.UnsubscribeGeneral(id)

	logger := NewLogger(slog.LevelInfo, broker)
	logger.Debug("too quiet")
	logger.Info("loud enough")

	entry := receiveEntry(t, ch)
	assert.Equal(t, "loud enough", entry.Message)
}

func TestTerminalMarkers(t *testing.T) {
	broker := NewBroker()
	ch, id := broker.SubscribeDeployment("dep-7")
	defer broker.UnsubscribeDeployment("dep-7", id)

	logger := NewDeploymentLogger("dep-7", slog.LevelInfo, broker)

	LogDeploymentComplete(logger, "api", "Deployment complete")
	entry := receiveEntry(t, ch)
	assert.True(t, entry.IsDeploymentComplete)
	assert.False(t, entry.IsDeploymentFailed)
	assert.Equal(t, "api", entry.Target)

	LogDeploymentFailed(logger, "api", "Deployment failed", fmt.Errorf("probe gave up"))
	entry = receiveEntry(t, ch)
	assert.True(t, entry.IsDeploymentFailed)
	assert.Equal(t, "probe gave up", entry.Fields["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
