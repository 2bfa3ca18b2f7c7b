package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
)

// CalSegEntry is the registry's record of a calibration segment: its
// name, unique relative-addressing index, base address/extension, and
// size. The live double-buffered container lives in package calseg; this
// is only its A2L/address-book entry.
type CalSegEntry struct {
	Name    mcid.Identifier
	Index   uint16
	Addr    uint32
	AddrExt uint8
	Size    uint32
}

// PrefixedName returns the segment name, optionally prefixed by appName.
func (s CalSegEntry) PrefixedName(appName string, prefixNames bool) string {
	if prefixNames {
		return fmt.Sprintf("%s.%s", appName, s.Name)
	}
	return s.Name.String()
}

// CalSegList is the registry's ordered collection of calibration segments.
// mu guards every method below against concurrent Add/AddA2L calls from
// different goroutines (e.g. two DaqEvents registering on different
// threads); frozen points at the owning Registry's frozen flag so Add can
// reject mutation once the registry has been frozen.
type CalSegList struct {
	mu     sync.Mutex
	frozen *uint32
	segs   []CalSegEntry
}

// NewCalSegList creates an empty CalSegList whose Add/AddA2L methods refuse
// to mutate once *frozen is set.
func NewCalSegList(frozen *uint32) *CalSegList {
	return &CalSegList{frozen: frozen, segs: make([]CalSegEntry, 0, 8)}
}

// Len returns the number of registered segments.
func (l *CalSegList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.segs)
}

// All returns the segments in registration order.
func (l *CalSegList) All() []CalSegEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.segs
}

// SortByName sorts segments by name, used before A2L emission.
func (l *CalSegList) SortByName() {
	l.mu.Lock()
	defer l.mu.Unlock()
	sort.SliceStable(l.segs, func(i, j int) bool { return l.segs[i].Name.Less(l.segs[j].Name) })
}

// Add registers a calibration segment at the canonical base address derived
// from its index (mcaddr.CalSegExtAddrBase).
func (l *CalSegList) Add(name mcid.Identifier, index uint16, size uint32) error {
	ext, addr := mcaddr.CalSegExtAddrBase(index)
	return l.AddA2L(name, index, ext, addr, size)
}

// AddA2L registers a calibration segment at an explicit address/extension,
// used when the segment's layout comes from a third-party A2L file.
func (l *CalSegList) AddA2L(name mcid.Identifier, index uint16, addrExt uint8, addr, size uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if atomic.LoadUint32(l.frozen) == 1 {
		return errClosed(name.String())
	}
	for _, s := range l.segs {
		if s.Index == index {
			return errDuplicate(fmt.Sprintf("calibration segment index %d", index))
		}
		if s.Name == name {
			return errDuplicate(name.String())
		}
	}
	l.segs = append(l.segs, CalSegEntry{Name: name, Index: index, Addr: addr, AddrExt: addrExt, Size: size})
	return nil
}

// Find looks up a segment by name.
func (l *CalSegList) Find(name mcid.Identifier) (CalSegEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.segs {
		if s.Name == name {
			return s, true
		}
	}
	return CalSegEntry{}, false
}

// FindByAddress looks up the segment containing the given address.
func (l *CalSegList) FindByAddress(addr uint32) (mcid.Identifier, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.segs {
		if s.Addr <= addr && addr < s.Addr+s.Size {
			return s.Name, true
		}
	}
	return "", false
}

// FindByIndex looks up a segment's name by its relative-addressing index.
func (l *CalSegList) FindByIndex(index uint16) (mcid.Identifier, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.segs {
		if s.Index == index {
			return s.Name, true
		}
	}
	return "", false
}

// CalSegIndex resolves a segment name to its index, satisfying
// mcaddr.SegIndexLookup.
func (l *CalSegList) CalSegIndex(name mcid.Identifier) (uint16, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.segs {
		if s.Name == name {
			return s.Index, true
		}
	}
	return 0, false
}
