package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// EventType defines the category of a run event.
type EventType string

const (
	EventTypeRunStarted   EventType = "run_started"
	EventTypeStep         EventType = "step"
	EventTypeScreenshot   EventType = "screenshot"
	EventTypeRunFinished  EventType = "run_finished"
	EventTypeNotification EventType = "notification"
)

// Event is one line of the run event log.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLog appends events as JSON lines and keeps one rotated file around.
type EventLog struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	clock   clockwork.Clock
}

// DefaultEventLogSize is the size at which the log is rotated.
const DefaultEventLogSize = 10 * 1024 * 1024

func NewEventLog(path string, maxSize int64, clock clockwork.Clock) *EventLog {
	if maxSize <= 0 {
		maxSize = DefaultEventLogSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventLog{path: path, maxSize: maxSize, clock: clock}
}

func (l *EventLog) Path() string { return l.path }

// Log writes evt, stamping it when it carries no timestamp.
func (l *EventLog) Log(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = l.clock.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// Check size before writing
	if info, err := os.Stat(l.path); err == nil && info.Size()+int64(len(data)) > l.maxSize {
		l.rotate()
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}
	return nil
}

// rotate keeps a single .old file.
func (l *EventLog) rotate() {
	oldPath := l.path + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.path, oldPath)
}

func (l *EventLog) RunStarted(runID, url string) error {
	return l.Log(Event{
		Type:  EventTypeRunStarted,
		RunID: runID,
		Data:  map[string]string{"url": url},
	})
}

func (l *EventLog) Step(runID string, ordinal int, label string) error {
	return l.Log(Event{
		Type:  EventTypeStep,
		RunID: runID,
		Data:  map[string]any{"ordinal": ordinal, "label": label},
	})
}

func (l *EventLog) Screenshot(runID, path string) error {
	return l.Log(Event{
		Type:  EventTypeScreenshot,
		RunID: runID,
		Data:  map[string]string{"path": path},
	})
}

func (l *EventLog) RunFinished(runID, status string, duration time.Duration, failedStep, errText string) error {
	data := map[string]any{
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}
	if failedStep != "" {
		data["failed_step"] = failedStep
		data["error"] = errText
	}
	return l.Log(Event{Type: EventTypeRunFinished, RunID: runID, Data: data})
}

func (l *EventLog) Notification(runID string, sent, configured int) error {
	return l.Log(Event{
		Type:  EventTypeNotification,
		RunID: runID,
		Data:  map[string]int{"sent": sent, "configured": configured},
	})
}
