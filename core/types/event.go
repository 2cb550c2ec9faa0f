package types

import "sync"

// Event represents a typed event emitted during state transitions. Attributes
// carry the string-encoded payload consumed by downstream indexers.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Recorder receives events emitted by the native modules.
type Recorder interface {
	AppendEvent(evt *Event)
}

// MemoryRecorder buffers emitted events in order. It backs tests and the
// in-process gateway feed. Safe for concurrent use.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryRecorder constructs an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// AppendEvent stores a copy of the supplied event.
func (r *MemoryRecorder) AppendEvent(evt *Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := Event{Type: evt.Type, Attributes: make(map[string]string, len(evt.Attributes))}
	for k, v := range evt.Attributes {
		copied.Attributes[k] = v
	}
	r.events = append(r.events, copied)
}

// Events returns the recorded events in emission order.
func (r *MemoryRecorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// LastOfType returns the most recent event with the given type, if any.
func (r *MemoryRecorder) LastOfType(eventType string) (Event, bool) {
	if r == nil {
		return Event{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return Event{}, false
}
