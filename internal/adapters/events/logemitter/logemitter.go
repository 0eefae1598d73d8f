package logemitter

import (
	"log"

	"ridepool-backend/internal/ports/out/events"
)

// Emitter writes state-change events to a standard logger. It is the default
// observability sink when nothing richer is configured.
type Emitter struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Emitter {
	return &Emitter{logger: logger}
}

func (e *Emitter) Emit(ev events.Event) {
	if e.logger == nil {
		return
	}
	e.logger.Printf("event=%s address=%s trip=%s registry=%s amount=%d",
		ev.Type, ev.Address, ev.TripID, ev.RegistryID, ev.Amount)
}
