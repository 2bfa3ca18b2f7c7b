package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rob-gra/xcp-lite/mcid"
)

// Event is a named trigger point for consistent data acquisition. Its Name
// need not be unique: multiple instances of the same task or thread create
// events with the same name and distinct Index > 0. ID is the unique XCP
// event number used on the wire and in A2L.
type Event struct {
	Name               mcid.Identifier
	Index              uint16
	ID                 uint16
	TargetCycleTimeNs  uint32
}

// UniqueName returns the A2L-safe name: Name, or "Name_Index" when this is
// one of several same-named instances, optionally prefixed by appName.
func (e Event) UniqueName(appName string, prefixNames bool) string {
	if e.Index > 0 {
		if prefixNames {
			return fmt.Sprintf("%s.%s_%d", appName, e.Name, e.Index)
		}
		return fmt.Sprintf("%s_%d", e.Name, e.Index)
	}
	if prefixNames {
		return fmt.Sprintf("%s.%s", appName, e.Name)
	}
	return e.Name.String()
}

// EventList is the registry's ordered collection of events. mu guards every
// method below against concurrent Add calls from different goroutines;
// frozen points at the owning Registry's frozen flag so Add can reject
// mutation once the registry has been frozen.
type EventList struct {
	mu     sync.Mutex
	frozen *uint32
	events []Event
}

// NewEventList creates an empty EventList whose Add method refuses to
// mutate once *frozen is set.
func NewEventList(frozen *uint32) *EventList {
	return &EventList{frozen: frozen, events: make([]Event, 0, 100)}
}

// Len returns the number of registered events.
func (l *EventList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// All returns the events in registration order. Callers must not mutate the
// returned slice.
func (l *EventList) All() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events
}

// Add registers an event. It rejects a duplicate (name, index) pair and a
// duplicate id, matching the original's two independent uniqueness checks.
func (l *EventList) Add(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if atomic.LoadUint32(l.frozen) == 1 {
		return errClosed(e.Name.String())
	}
	for _, ev := range l.events {
		if ev.Index == e.Index && ev.Name == e.Name {
			return errDuplicate(e.Name.String())
		}
		if ev.ID == e.ID {
			return errDuplicate(e.Name.String())
		}
	}
	l.events = append(l.events, e)
	return nil
}

// SortByName sorts events by name. Event ids are left unchanged.
func (l *EventList) SortByName() {
	l.mu.Lock()
	defer l.mu.Unlock()
	sort.SliceStable(l.events, func(i, j int) bool {
		return l.events[i].Name.Less(l.events[j].Name)
	})
}

// SortByID sorts events by their XCP event id.
func (l *EventList) SortByID() {
	l.mu.Lock()
	defer l.mu.Unlock()
	sort.SliceStable(l.events, func(i, j int) bool { return l.events[i].ID < l.events[j].ID })
}

// Find looks up an event by exact (name, index).
func (l *EventList) Find(name mcid.Identifier, index uint16) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Index == index && e.Name == name {
			return e, true
		}
	}
	return Event{}, false
}

// FindByID looks up an event by its unique XCP event id.
func (l *EventList) FindByID(id uint16) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}
