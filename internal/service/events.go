package service

import (
	"encoding/json"
	"io"
	"time"
)

// EventLogger writes one JSON object per line for each run event, mirroring
// the structured request logs of the HTTP services this tool runs alongside.
type EventLogger struct {
	enc   *json.Encoder
	runID string
}

// NewEventLogger creates an event logger writing to w. Every event carries
// the run ID for correlation across a scheduler's captured output.
func NewEventLogger(w io.Writer, runID string) *EventLogger {
	return &EventLogger{enc: json.NewEncoder(w), runID: runID}
}

// Event emits a single structured log line.
func (l *EventLogger) Event(event string, fields map[string]any) {
	if l == nil {
		return
	}
	entry := map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"run_id": l.runID,
		"event":  event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	_ = l.enc.Encode(entry)
}
