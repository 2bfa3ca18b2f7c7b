// Package mcaddr models the four ways an instance can be addressed
// (calibration-segment relative, event relative, event relative with async
// access, and explicit A2L passthrough) and projects each onto the single
// wire/A2L (addrExt, addr) pair the protocol and the A2L writer both need.
package mcaddr

import (
	"fmt"

	"github.com/rob-gra/xcp-lite/mcid"
)

// Addressing modes, mirroring McAddress::ADDR_MODE_*.
const (
	ModeCal      = 0x00
	ModeAbs      = 0x01 // not implemented, kept for parity with the original enum
	ModeDyn      = 0x02
	ModeRel      = 0x03
	ModeA2L      = 0xA0
	ModeA2LEvent = 0xA1
	ModeUndef    = 0xFF
)

// XCP address extensions, mirroring McAddress::XCP_ADDR_EXT_*.
const (
	ExtSeg   = 0x00
	ExtAbs   = 0x01
	ExtDyn   = 0x02
	ExtRel   = 0x03
	ExtUndef = 0xFF
)

// OffsetUndef is the sentinel relative offset of a zero-value Address.
const OffsetUndef int32 = -0x80000000

// EPKAddr is the fixed virtual address XCP read() serves the EPK string
// from, and write() must reject.
const EPKAddr uint32 = 0x80000000

// Address locates a registry instance: relative to a calibration segment,
// relative to an event (synchronous or async), or an explicit A2L address
// carried over from a third-party A2L file.
type Address struct {
	calsegName *mcid.Identifier
	eventID    *uint16
	addrOffset int32
	mode       uint8
	a2lAddr    uint32
	a2lAddrExt uint8
}

// SegIndexLookup resolves a calibration segment name to its registry index,
// satisfied by registry.Registry without mcaddr importing registry.
type SegIndexLookup interface {
	CalSegIndex(name mcid.Identifier) (uint16, bool)
}

// NewCalSegRel builds a calibration-segment relative address.
func NewCalSegRel(calsegName mcid.Identifier, addrOffset int32) Address {
	return Address{calsegName: &calsegName, addrOffset: addrOffset, mode: ModeCal}
}

// NewEventRel builds an event-relative address (no async access, §6
// ext=3 wire projection).
func NewEventRel(eventID uint16, addrOffset int32) Address {
	return Address{eventID: &eventID, addrOffset: addrOffset, mode: ModeRel}
}

// NewEventDyn builds an event-relative address with async access (§6 ext=2
// wire projection); the offset must fit in an int16.
func NewEventDyn(eventID uint16, addrOffset int16) Address {
	return Address{eventID: &eventID, addrOffset: int32(addrOffset), mode: ModeDyn}
}

// NewA2L builds a passthrough address loaded from a third-party A2L file.
func NewA2L(a2lAddr uint32, a2lAddrExt uint8) Address {
	return Address{addrOffset: OffsetUndef, mode: ModeA2L, a2lAddr: a2lAddr, a2lAddrExt: a2lAddrExt}
}

// NewA2LWithEvent builds a passthrough A2L address tagged with an XCP event.
func NewA2LWithEvent(eventID uint16, a2lAddr uint32, a2lAddrExt uint8) Address {
	return Address{eventID: &eventID, mode: ModeA2LEvent, a2lAddr: a2lAddr, a2lAddrExt: a2lAddrExt}
}

// IsSegmentRelative reports whether this is a calibration-segment relative
// address.
func (a Address) IsSegmentRelative() bool {
	if a.mode == ModeCal {
		if a.calsegName == nil {
			panic("mcaddr: segment-relative address missing calseg name")
		}
		return true
	}
	return false
}

// IsEventRelative reports whether this is event-relative (sync or async).
func (a Address) IsEventRelative() bool {
	if a.mode == ModeRel || a.mode == ModeDyn {
		if a.eventID == nil {
			panic("mcaddr: event-relative address missing event id")
		}
		return true
	}
	return false
}

// CalSegName returns the calibration segment name, if this is
// segment-relative.
func (a Address) CalSegName() (mcid.Identifier, bool) {
	if a.calsegName == nil {
		return "", false
	}
	return *a.calsegName, true
}

// EventID returns the event id, if this is event-relative.
func (a Address) EventID() (uint16, bool) {
	if a.eventID == nil {
		return 0, false
	}
	return *a.eventID, true
}

// EventIDUnchecked returns the event id, or 0xFFFF (invalid, sorts last) if
// this address has none - used only as an event-id sort key.
func (a Address) EventIDUnchecked() uint16 {
	if a.eventID == nil {
		return 0xFFFF
	}
	return *a.eventID
}

// AddrOffset returns the relative offset. Panics for A2L-passthrough
// addresses, which have none.
func (a Address) AddrOffset() int32 {
	switch a.mode {
	case ModeRel, ModeCal, ModeDyn:
		return a.addrOffset
	case ModeA2L, ModeA2LEvent:
		panic("mcaddr: A2L address does not have an offset")
	default:
		panic("mcaddr: invalid address mode")
	}
}

// AddAddrOffset adds to the relative offset in place. Panics for
// A2L-passthrough addresses.
func (a *Address) AddAddrOffset(offset int32) {
	switch a.mode {
	case ModeRel, ModeCal, ModeDyn:
		a.addrOffset += offset
	case ModeA2L, ModeA2LEvent:
		panic("mcaddr: A2L address does not have an offset")
	default:
		panic("mcaddr: invalid address mode")
	}
}

func dynExtAddr(eventID uint16, offset int16) (uint8, uint32) {
	return ExtDyn, (uint32(eventID) << 16) | uint32(uint16(offset))
}

func relExtAddr(offset int32) (uint8, uint32) {
	return ExtRel, uint32(offset)
}

// CalSegExtAddrBase returns the A2L (ext, addr) of a calibration segment's
// base, given its registry index: ext=0, addr=((index+1)|0x8000)<<16.
func CalSegExtAddrBase(calsegIndex uint16) (uint8, uint32) {
	addr := (uint32(calsegIndex+1) | 0x8000) << 16
	return ExtSeg, addr
}

// CalSegExtAddr returns the A2L (ext, addr) of a field at offset within a
// calibration segment's base.
func CalSegExtAddr(calsegIndex, offset uint16) (uint8, uint32) {
	ext, addr := CalSegExtAddrBase(calsegIndex)
	return ext, addr + uint32(offset)
}

// A2LAddr projects this Address onto the (addrExt, addr) pair used by both
// the A2L writer and the XCP protocol. lookup resolves calibration segment
// names to indices; it is only consulted for segment-relative addresses.
func (a Address) A2LAddr(lookup SegIndexLookup) (uint8, uint32) {
	switch a.mode {
	case ModeRel:
		return relExtAddr(a.addrOffset)
	case ModeDyn:
		if a.addrOffset < -32768 || a.addrOffset > 32767 {
			panic("mcaddr: event-dyn offset too large for i16")
		}
		return dynExtAddr(*a.eventID, int16(a.addrOffset))
	case ModeCal:
		index, ok := lookup.CalSegIndex(*a.calsegName)
		if !ok {
			panic("mcaddr: relative addressing needs a calibration segment")
		}
		if a.addrOffset < 0 || a.addrOffset > 65535 {
			panic("mcaddr: calseg offset too large for u16")
		}
		return CalSegExtAddr(index, uint16(a.addrOffset))
	case ModeA2L, ModeA2LEvent:
		return a.a2lAddrExt, a.a2lAddr
	default:
		panic("mcaddr: invalid address mode")
	}
}

func (a Address) String() string {
	return fmt.Sprintf("Address{mode=0x%02X, offset=%d}", a.mode, a.addrOffset)
}

// DecodeCalSegAddr reverses CalSegExtAddrBase for the protocol glue's
// read/write callbacks: addr's high word carries index|0x8000 (index 0
// reserved for the EPK virtual region, any other index is a calibration
// segment at index-1), the low word is the byte offset within it. ok is
// false if addr isn't in this high-bit-set address space at all.
func DecodeCalSegAddr(addr uint32) (calsegIndex uint16, offset uint16, isEPK bool, ok bool) {
	if addr&0x80000000 == 0 {
		return 0, 0, false, false
	}
	index := uint16(addr>>16) & 0x7FFF
	offset = uint16(addr & 0xFFFF)
	if index == 0 {
		return 0, offset, true, true
	}
	return index - 1, offset, false, true
}
