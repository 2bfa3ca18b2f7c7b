package xcp

import (
	"sort"
	"sync"

	"github.com/rob-gra/xcp-lite/daq"
	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/registry"
	"github.com/rob-gra/xcp-lite/xcpproto"
)

type eventInfo struct {
	name  string
	event daq.XcpEvent
}

// eventList hands out sequential daq.XcpEvent ids and keeps the names
// needed to register them into the registry at Register time.
//
// The original renumbers events by (name, index) on freeze so the A2L file
// is byte-for-byte deterministic regardless of the order threads happen to
// create events in at startup. This port keeps creation-order ids instead:
// a DaqEvent registers its capture/stack/heap instances against its event
// id the moment it's created, baking that id into every mcaddr.Address it
// produces, so remapping the id afterwards would desynchronize those
// addresses from the event actually triggered on the wire. Trading the
// cross-run A2L determinism for address correctness without a live
// indirection layer is the judgment call recorded for this port.
type eventList struct {
	mu     sync.Mutex
	events []eventInfo
}

func newEventList() *eventList { return &eventList{} }

func (l *eventList) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// createEvent allocates the next sequential event id. When indexed is true,
// it assigns a 1-based instance index among other indexed events already
// sharing name, for the daq_create_event_instance-style per-thread-instance
// pattern. Past MaxEvents it logs an error and returns daq.Undefined rather
// than failing the caller hard; exceeding the instance-index bound below
// remains a panic, a distinct and genuinely fatal misconfiguration.
func (l *eventList) createEvent(name string, indexed bool) daq.XcpEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) >= xcpproto.MaxEvents {
		log.Error("create event %s: maximum number of events (%d) exceeded", name, xcpproto.MaxEvents)
		return daq.Undefined
	}

	var index uint16
	if indexed {
		count := 0
		for _, e := range l.events {
			if e.name == name && e.event.Index > 0 {
				count++
			}
		}
		index = uint16(count + 1)
		if index > xcpproto.MaxEventInstances {
			panic("xcp: maximum number of event instances exceeded")
		}
	}

	event := daq.XcpEvent{ID: uint16(len(l.events)), Index: index}
	log.Debug("create event %s num=%d index=%d", name, event.ID, event.Index)
	l.events = append(l.events, eventInfo{name: name, event: event})
	return event
}

// register pushes every created event into reg in a stable (name, index)
// order, for a readable A2L listing.
func (l *eventList) register(reg *registry.Registry, cycleTimeNs func(daq.XcpEvent) uint32) {
	l.mu.Lock()
	ordered := append([]eventInfo(nil), l.events...)
	l.mu.Unlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].name == ordered[j].name {
			return ordered[i].event.Index < ordered[j].event.Index
		}
		return ordered[i].name < ordered[j].name
	})

	for _, e := range ordered {
		var cycle uint32
		if cycleTimeNs != nil {
			cycle = cycleTimeNs(e.event)
		}
		if err := reg.Events.Add(registry.Event{
			Name:              mcid.NewIdentifier(e.name),
			Index:             e.event.Index,
			ID:                e.event.ID,
			TargetCycleTimeNs: cycle,
		}); err != nil {
			log.Error("register event %s failed: %s", e.name, err)
		}
	}
}
