package registry

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/mctype"
)

// Instance is a measurement or calibration object: a named, dimensioned,
// addressed value. Its DimType carries the object role (Measurement,
// Characteristic, Axis) and conversion meta data; its Address locates it in
// memory relative to a calibration segment or an event.
type Instance struct {
	Name    mcid.Identifier
	DimType mctype.DimType
	Address mcaddr.Address
}

// NewInstance constructs an Instance.
func NewInstance(name mcid.Identifier, dimType mctype.DimType, address mcaddr.Address) Instance {
	return Instance{Name: name, DimType: dimType, Address: address}
}

// TypeDefName returns the referenced typedef name, if this instance's value
// type is a TypeDef reference.
func (i Instance) TypeDefName() (mcid.Identifier, bool) {
	if i.DimType.ValueType.Kind() != mctype.TypeDefKind {
		return "", false
	}
	return i.DimType.ValueType.TypeDefName(), true
}

// UniqueName returns the A2L-safe instance name, suffixed by the owning
// event's instance index when that index is greater than zero, optionally
// prefixed by appName.
func (i Instance) UniqueName(reg *Registry) string {
	if eventID, ok := i.Address.EventID(); ok {
		if ev, ok := reg.Events.FindByID(eventID); ok && ev.Index > 0 {
			if reg.PrefixNames {
				return fmt.Sprintf("%s.%s_%d", reg.AppName(), i.Name, ev.Index)
			}
			return fmt.Sprintf("%s_%d", i.Name, ev.Index)
		}
	}
	if reg.PrefixNames {
		return fmt.Sprintf("%s.%s", reg.AppName(), i.Name)
	}
	return i.Name.String()
}

// InstanceList is the registry's ordered collection of measurement and
// calibration object instances. mu guards every method below against
// concurrent Add calls from different goroutines (e.g. two DaqEvents
// registering their first sample concurrently on different threads);
// frozen points at the owning Registry's frozen flag so Add can reject
// mutation once the registry has been frozen.
type InstanceList struct {
	mu        sync.Mutex
	frozen    *uint32
	instances []Instance
}

// NewInstanceList creates an empty InstanceList whose Add method refuses to
// mutate once *frozen is set.
func NewInstanceList(frozen *uint32) *InstanceList {
	return &InstanceList{frozen: frozen, instances: make([]Instance, 0, 100)}
}

// Len returns the number of registered instances.
func (l *InstanceList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.instances)
}

// All returns the instances in registration order.
func (l *InstanceList) All() []Instance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.instances
}

// SortByNameAndEvent sorts by name, breaking ties by owning event id -
// the order the A2L writer and typedef flattening both rely on.
func (l *InstanceList) SortByNameAndEvent() {
	l.mu.Lock()
	defer l.mu.Unlock()
	sort.SliceStable(l.instances, func(i, j int) bool {
		a, b := l.instances[i], l.instances[j]
		if a.Name == b.Name {
			return a.Address.EventIDUnchecked() < b.Address.EventIDUnchecked()
		}
		return a.Name.Less(b.Name)
	})
}

// Add registers an instance. It rejects an (address, name) pair that
// already exists, since names alone are not unique across event instances.
// It panics if dimType carries no object role (Unspecified), matching the
// original's assertion.
func (l *InstanceList) Add(name mcid.Identifier, dimType mctype.DimType, address mcaddr.Address) error {
	if dimType.ObjectType() == mctype.Unspecified {
		panic("registry: instance object type must be specified")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if atomic.LoadUint32(l.frozen) == 1 {
		return errClosed(name.String())
	}
	for _, i := range l.instances {
		if i.Address == address && i.Name == name {
			return errDuplicate(name.String())
		}
	}
	l.instances = append(l.instances, NewInstance(name, dimType, address))
	return nil
}

// Find returns the first instance whose name matches regex and, if
// non-empty constraints are given, whose object type and event id also
// match.
func (l *InstanceList) Find(pattern string, objectType mctype.ObjectType, eventID *uint16) (Instance, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Instance{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, i := range l.instances {
		if !matchesEventID(i, eventID) {
			continue
		}
		if objectType != mctype.Unspecified && i.DimType.ObjectType() != objectType {
			continue
		}
		if re.MatchString(i.Name.String()) {
			return i, true
		}
	}
	return Instance{}, false
}

// FindAll returns the names of every instance matching regex and the
// optional object type / event id constraints.
func (l *InstanceList) FindAll(pattern string, objectType mctype.ObjectType, eventID *uint16) []string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var names []string
	for _, i := range l.instances {
		if !matchesEventID(i, eventID) {
			continue
		}
		if objectType != mctype.Unspecified && i.DimType.ObjectType() != objectType {
			continue
		}
		if re.MatchString(i.Name.String()) {
			names = append(names, i.Name.String())
		}
	}
	return names
}

func matchesEventID(i Instance, eventID *uint16) bool {
	if eventID == nil {
		return true
	}
	id, ok := i.Address.EventID()
	return ok && id == *eventID
}
