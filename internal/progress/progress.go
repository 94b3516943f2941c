// Package progress carries pipeline progress notifications to an injected
// sink. The pipeline only emits events; delivery failures never feed back
// into processing.
package progress

import (
	"sync"

	"go.uber.org/zap"
)

// EventType identifies the kind of progress notification.
type EventType string

const (
	EventLog       EventType = "log_update"
	EventAgent     EventType = "agent_update"
	EventStep      EventType = "step_update"
	EventCompleted EventType = "completed"
)

// Event is one ordered progress notification.
type Event struct {
	Type      EventType
	Level     string // info, warning, error, success
	Message   string
	AgentName string
	Status    string // active, completed, error
	StepInfo  string
	Data      map[string]any
}

// Sink receives progress events. Implementations must be safe for
// concurrent use; chunk and batch workers emit from their own goroutines.
type Sink interface {
	Send(ev Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Send(Event) {}

// LogSink forwards events to the zap logger.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink returns a sink over the given logger, defaulting to the
// global one.
func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.L()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Send(ev Event) {
	switch ev.Type {
	case EventLog:
		switch ev.Level {
		case "error":
			s.log.Error(ev.Message)
		case "warning":
			s.log.Warn(ev.Message)
		default:
			s.log.Info(ev.Message)
		}
	case EventAgent:
		s.log.Info("agent update",
			zap.String("agent", ev.AgentName),
			zap.String("status", ev.Status))
	case EventStep:
		s.log.Info("step update", zap.String("step", ev.StepInfo))
	case EventCompleted:
		s.log.Info("pipeline completed")
	}
}

// CollectSink records events in order. Test helper.
type CollectSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *CollectSink) Send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a snapshot of the recorded events.
func (s *CollectSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
