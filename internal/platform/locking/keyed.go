package locking

import (
	"sync"

	"ridepool-backend/internal/domain"
)

// Keyed provides one mutex per key so that each trip, account, and registry
// is an independently lockable resource. Entries are reference counted and
// removed when unused, so the map does not grow with the keyspace.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("locking: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Lock-ordering rule for multi-resource operations: trip before account
// before registry. Joins take trip then account; completions take trip then
// registry; no operation takes account and registry together.

func AccountKey(a domain.Address) string { return "account/" + string(a) }

func TripKey(id domain.TripID) string { return "trip/" + string(id) }

func RegistryKey(id domain.RegistryID) string { return "registry/" + string(id) }
