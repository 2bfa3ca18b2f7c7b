package daq

import (
	"sync/atomic"

	"github.com/rob-gra/xcp-lite/clog"
	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/mctype"
	"github.com/rob-gra/xcp-lite/registry"
)

var log = clog.NewLogger("daq")

// Sampler receives the relative-addressed memory a DaqEvent trigger fires
// against. The transport layer implements it: on Sample it copies base
// into its DAQ queue for transmission under this event's id.
type Sampler interface {
	Sample(eventID uint16, base []byte)
}

// DaqEvent wraps an XcpEvent with an optional inline capture staging
// buffer: a place to stage values a task doesn't want to expose at their
// permanent memory address. Allocate/Capture/Trigger share the buffer;
// AddStack/AddHeap/TriggerExt instead address an external base the caller
// supplies at trigger time.
type DaqEvent struct {
	event     XcpEvent
	reg       *registry.Registry
	buffer    []byte
	bufferLen int
}

// New creates a DaqEvent for event with a capture buffer of the given
// capacity (0 for none), registering instances into reg.
func New(reg *registry.Registry, event XcpEvent, capacity int) *DaqEvent {
	return &DaqEvent{event: event, reg: reg, buffer: make([]byte, capacity)}
}

// Event returns the wrapped XcpEvent.
func (d *DaqEvent) Event() XcpEvent { return d.event }

// EventID returns the wrapped event's wire id.
func (d *DaqEvent) EventID() uint16 { return d.event.ID }

// Capacity returns the capture buffer's total size in bytes.
func (d *DaqEvent) Capacity() int { return len(d.buffer) }

// Allocate reserves size bytes in the capture buffer and returns their byte
// offset. It panics on overflow, matching the original's assertion - this
// only fires for a programming error (the buffer was undersized at
// construction), not a runtime condition callers can recover from.
func (d *DaqEvent) Allocate(size int) int16 {
	offset := d.bufferLen
	if offset+size > len(d.buffer) {
		panic("daq: capture buffer overflow")
	}
	d.bufferLen += size
	if offset > 0x7FFF {
		panic("daq: capture buffer offset out of i16 range")
	}
	return int16(offset)
}

// Capture copies data into the capture buffer at a previously allocated
// offset.
func (d *DaqEvent) Capture(data []byte, offset int16) {
	copy(d.buffer[offset:int(offset)+len(data)], data)
}

// Trigger fires the event using the capture buffer as the event-relative
// base.
func (d *DaqEvent) Trigger(sampler Sampler) {
	sampler.Sample(d.event.ID, d.buffer)
}

// TriggerExt fires the event against an external base, used for the stack
// and heap relative-addressing registration modes.
func (d *DaqEvent) TriggerExt(sampler Sampler, base []byte) {
	sampler.Sample(d.event.ID, base)
}

func measurementSupport(comment string, factor, offset float64, unit string) mctype.SupportData {
	return mctype.NewSupportData(mctype.Measurement).SetComment(comment).SetLinear(factor, offset, unit)
}

// AddCapture allocates space in the capture buffer and registers an
// instance at the allocated event-relative offset, returning the offset
// for later Capture calls.
func (d *DaqEvent) AddCapture(name string, size int, valueType mctype.ValueType, xDim, yDim uint16, factor, offset float64, unit, comment string) int16 {
	eventOffset := d.Allocate(size)
	dimType := mctype.NewWithMetadata(valueType, xDim, yDim, measurementSupport(comment, factor, offset, unit))
	addr := mcaddr.NewEventRel(d.event.ID, int32(eventOffset))
	if err := d.reg.Instances.Add(mcid.NewIdentifier(name), dimType, addr); err != nil {
		log.Error("add_instance failed: %s", err)
	}
	return eventOffset
}

// AddStack registers an instance at offset bytes relative to whatever base
// the caller later passes to TriggerExt - typically the address of a
// struct of stack-local variables the task fires this event against. The
// caller computes offset (e.g. via unsafe.Pointer arithmetic between two
// fields of that struct); this package never does pointer arithmetic
// itself, since Go gives no safe way to diff pointers into unrelated
// allocations the way the original's raw pointer subtraction does.
func (d *DaqEvent) AddStack(name string, offset int32, valueType mctype.ValueType, xDim, yDim uint16, factor, offsetPhys float64, unit, comment string) error {
	dimType := mctype.NewWithMetadata(valueType, xDim, yDim, measurementSupport(comment, factor, offsetPhys, unit))
	addr := mcaddr.NewEventRel(d.event.ID, offset)
	return d.reg.Instances.Add(mcid.NewIdentifier(name), dimType, addr)
}

// AddHeap registers an instance at offset bytes relative to the base the
// caller will pass to TriggerExt, for a value living on the heap rather
// than the stack. Mechanically identical to AddStack in Go (both simply
// register an event-relative instance at a caller-computed offset); kept
// as a distinct method to preserve the original's two-call-site API and
// document the different addressing intent at call sites.
func (d *DaqEvent) AddHeap(name string, offset int32, valueType mctype.ValueType, xDim, yDim uint16, support mctype.SupportData) error {
	dimType := mctype.NewWithMetadata(valueType, xDim, yDim, support)
	addr := mcaddr.NewEventRel(d.event.ID, offset)
	return d.reg.Instances.Add(mcid.NewIdentifier(name), dimType, addr)
}

//----------------------------------------------------------------------------------------------
// First-use registration cache

// slotEmpty is the sentinel cached offset meaning "not yet registered",
// matching the original macros' AtomicI16 initialized to -32768: a capture
// offset is always >= 0, so any negative value is free to use as the
// not-set marker.
const slotEmpty int32 = -1

// CaptureSlot caches the offset a registration call returns on its first
// use so repeated triggers of a hot loop only pay for the memcpy, matching
// the original's atomic-sentinel-guarded per-call-site static cache. The
// zero value is NOT ready to use; construct with NewCaptureSlot.
type CaptureSlot struct {
	offset atomic.Int32
}

// NewCaptureSlot returns a CaptureSlot ready for first use.
func NewCaptureSlot() *CaptureSlot {
	s := &CaptureSlot{}
	s.offset.Store(slotEmpty)
	return s
}

// Once returns the cached offset if already registered, otherwise calls
// register and caches its result. Concurrent first calls may all invoke
// register, but every caller converges on the same winning offset.
func (s *CaptureSlot) Once(register func() int16) int16 {
	if v := s.offset.Load(); v != slotEmpty {
		return int16(v)
	}
	off := int32(register())
	s.offset.CompareAndSwap(slotEmpty, off)
	return int16(s.offset.Load())
}
