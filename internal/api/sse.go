package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/evdal/switchback/internal/logging"
)

type sseStreamConfig struct {
	logChan <-chan logging.LogEntry
	cleanup func()

	// stopOnTerminal ends the stream after an entry carrying a
	// deployment-complete or deployment-failed marker.
	stopOnTerminal bool
}

// streamSSELogs relays log entries to the client as Server-Sent Events
// until the client disconnects, the channel closes, or a terminal entry
// arrives.
func streamSSELogs(w http.ResponseWriter, r *http.Request, streamConfig sseStreamConfig) {
	defer streamConfig.cleanup()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Nginx/HAProxy

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Initial keepalive establishes the connection on the client side.
	if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
		return
	}
	flusher.Flush()

	ctx := r.Context()
	keepaliveTicker := time.NewTicker(30 * time.Second)
	defer keepaliveTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return

		case <-keepaliveTicker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case logEntry, ok := <-streamConfig.logChan:
			if !ok {
				return
			}

			if err := writeSSEMessage(w, logEntry); err != nil {
				return
			}
			flusher.Flush()

			if streamConfig.stopOnTerminal && (logEntry.IsDeploymentComplete || logEntry.IsDeploymentFailed) {
				return
			}
		}
	}
}

// writeSSEMessage writes a log entry as a Server-Sent Event.
func writeSSEMessage(w http.ResponseWriter, entry logging.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	if err != nil {
		return fmt.Errorf("failed to write SSE data: %w", err)
	}

	return nil
}
