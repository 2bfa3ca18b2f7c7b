// Package daq hosts the measurement trigger path: XcpEvent identifies a
// trigger point, DaqEvent wraps one with an optional capture staging
// buffer and the capture/stack/heap registration helpers that project a
// task's local variables onto event-relative registry instances.
package daq

import "fmt"

// UndefinedEventID is the sentinel id of a not-yet-created event.
const UndefinedEventID uint16 = 0xFFFF

// XcpEvent identifies a DAQ trigger point: its unique wire id and, for one
// of several same-named instances spawned by concurrent task threads, its
// 1-based instance index (0 for a singleton event).
type XcpEvent struct {
	ID    uint16
	Index uint16
}

// Undefined is the placeholder used before an event is created. It is not
// the zero value: XcpEvent{} is the valid event with id 0.
var Undefined = XcpEvent{ID: UndefinedEventID}

// IsUndefined reports whether this is the Undefined sentinel.
func (e XcpEvent) IsUndefined() bool { return e.ID == UndefinedEventID }

func (e XcpEvent) String() string {
	return fmt.Sprintf("XcpEvent{id=%d, index=%d}", e.ID, e.Index)
}
