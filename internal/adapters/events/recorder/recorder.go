package recorder

import (
	"sync"

	"ridepool-backend/internal/ports/out/events"
)

// Recorder is an events.Emitter that captures emitted events for assertions.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything emitted so far, in order.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// OfType returns recorded events matching t, in order.
func (r *Recorder) OfType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
