package publish

import (
	"context"
	"encoding/json"
	"sync"
)

// Event is one published event as seen by a Recorder.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// Recorder is an in-memory Publisher keeping every event.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

var _ Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Payload: raw})
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Events returns the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
