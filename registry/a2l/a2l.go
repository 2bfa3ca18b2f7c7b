// Package a2l renders a frozen registry.Registry as ASAM MCD-2MC (A2L) text:
// the MOD_COMMON/MOD_PAR/IF_DATA XCP header, a small library of predefined
// RECORD_LAYOUTs, and one MEASUREMENT/CHARACTERISTIC/AXIS_PTS/INSTANCE/BLOB
// record per registry instance, plus GROUPs collecting measurements by
// event and characteristics by calibration segment.
package a2l

import (
	"fmt"
	"io"
	"math"

	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mctype"
	"github.com/rob-gra/xcp-lite/registry"
)

// Writer accumulates A2L text for one registry. It is not safe for
// concurrent use.
type Writer struct {
	w            io.Writer
	reg          *registry.Registry
	err          error
	writtenNames map[string]bool
}

// New creates a Writer emitting to w for reg, which must be frozen.
func New(w io.Writer, reg *registry.Registry) *Writer {
	return &Writer{w: w, reg: reg, writtenNames: make(map[string]bool)}
}

func (a *Writer) printf(format string, args ...interface{}) {
	if a.err != nil {
		return
	}
	_, a.err = fmt.Fprintf(a.w, format, args...)
}

// checkDuplicate reports whether ident was already emitted, recording it if
// not. Used to deduplicate shared conversions and typedefs.
func (a *Writer) checkDuplicate(ident string) bool {
	if a.writtenNames[ident] {
		return true
	}
	a.writtenNames[ident] = true
	return false
}

// Write renders the complete A2L text for the registry. The registry must
// already be frozen (sorted, typedefs flattened if requested).
func Write(w io.Writer, reg *registry.Registry) error {
	a := New(w, reg)
	a.writeHead()
	a.writeRecordLayouts()
	if reg.TLParams != nil {
		a.writeTransportLayer(*reg.TLParams)
	}
	for _, ev := range reg.Events.All() {
		a.writeEvent(ev)
	}
	for _, seg := range reg.CalSegs.All() {
		a.writeCalSeg(seg)
	}
	for _, t := range reg.TypeDefs.All() {
		a.writeTypeDef(t)
	}
	for _, inst := range reg.Instances.All() {
		a.writeInstance(inst)
	}
	a.writeGroups()
	a.writeTail()
	return a.err
}

func (a *Writer) writeHead() {
	appName := a.reg.AppName()
	a.printf("ASAP2_VERSION 1 71\n/begin PROJECT %s \"\"\n/begin MODULE %s \"\"\n", appName, appName)
	a.printf("/begin MOD_COMMON \"\"\n  BYTE_ORDER MSB_LAST\n  ALIGNMENT_BYTE 1\n  ALIGNMENT_WORD 2\n  ALIGNMENT_LONG 4\n  ALIGNMENT_INT64 8\n  ALIGNMENT_FLOAT32_IEEE 4\n  ALIGNMENT_FLOAT64_IEEE 8\n/end MOD_COMMON\n")
	a.printf("/begin MOD_PAR \"%s\"\n  EPK \"%s\"\n  ADDR_EPK 0x%X\n/end MOD_PAR\n", a.reg.Application.Description, a.reg.Application.Version, a.reg.Application.VersionAddr)
	a.printf("/begin MEMORY_SEGMENT epk \"\" DATA FLASH INTERN 0x%X 4 -1 -1 -1 -1 -1 /end MEMORY_SEGMENT\n", mcaddr.EPKAddr)
}

func (a *Writer) writeTail() {
	a.printf("/end MODULE\n/end PROJECT\n")
}

// writeRecordLayouts emits the predefined, fixed-name RECORD_LAYOUT for
// every scalar type (U8, I16, F32, BOOL, ...), referenced by name from
// every MEASUREMENT/CHARACTERISTIC/AXIS_PTS this writer emits.
func (a *Writer) writeRecordLayouts() {
	scalars := []mctype.ValueType{
		mctype.VBool, mctype.VUbyte, mctype.VUword, mctype.VUlong, mctype.VUlonglong,
		mctype.VSbyte, mctype.VSword, mctype.VSlong, mctype.VSlonglong,
		mctype.VFloat32Ieee, mctype.VFloat64Ieee,
	}
	for _, t := range scalars {
		layout := t.RecordLayoutStr()
		a.printf("/begin RECORD_LAYOUT %s FNC_VALUES 1 %s ROW_DIR DIRECT /end RECORD_LAYOUT\n", layout, t.TypeStr())
		a.printf("/begin RECORD_LAYOUT A_%s AXIS_PTS_X 1 %s INDEX_INCR DIRECT /end RECORD_LAYOUT\n", layout, t.TypeStr())
	}
}

func (a *Writer) writeTransportLayer(tl registry.TransportLayer) {
	a.printf("\n\t\t\t/begin XCP_ON_%s_IP 0x104 %d ADDRESS \"%s\" /end XCP_ON_%s_IP\n",
		upper(tl.ProtocolName), tl.Port, tl.Addr, upper(tl.ProtocolName))
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func (a *Writer) writeEvent(ev registry.Event) {
	name := ev.UniqueName(a.reg.AppName(), a.reg.PrefixNames)
	shortName := name
	if len(shortName) > 8 {
		shortName = fmt.Sprintf("%s%d", shortName[:6], ev.ID)
		if len(shortName) > 8 {
			shortName = shortName[:8]
		}
	}
	a.printf("/begin EVENT %s \"%s\" 0x%X DAQ 0xFF 0 0 0", shortName, name, ev.ID)
	if ev.TargetCycleTimeNs > 0 {
		cycle, unit := cycleTimeToA2L(ev.TargetCycleTimeNs)
		a.printf(" %d %d", cycle, unit)
	} else {
		a.printf(" 0 0")
	}
	a.printf(" CONSISTENCY DAQ /end EVENT\n")
}

// cycleTimeToA2L converts a cycle time in nanoseconds to the ASAM
// timeCycle/timeUnit pair: timeUnit is the smallest power-of-ten unit
// (1ns..1s) at which timeCycle fits within a byte, and timeCycle is the
// cycle time rounded to that unit.
func cycleTimeToA2L(ns uint32) (cycle, unit uint8) {
	value := float64(ns)
	u := 0
	for value > 255 && u < 9 {
		value /= 10
		u++
	}
	return uint8(math.Round(value)), uint8(u)
}

// writeGroups emits the root "Measurements" group (one SUB_GROUP per
// distinct event) and a REF_MEASUREMENT group per event, then the root
// "Characteristics" group (one SUB_GROUP per calibration segment) and a
// REF_CHARACTERISTIC group per segment.
func (a *Writer) writeGroups() {
	events := a.reg.Events.All()

	a.printf("/begin GROUP Measurements \"\" ROOT /begin SUB_GROUP")
	for _, ev := range events {
		if ev.Index > 1 {
			continue
		}
		a.printf(" %s", ev.Name)
	}
	a.printf(" /end SUB_GROUP /end GROUP\n")

	for _, ev := range events {
		if ev.Index > 1 {
			continue
		}
		a.printf("/begin GROUP %s \"\" /begin REF_MEASUREMENT", ev.Name)
		for _, inst := range a.reg.Instances.All() {
			if !inst.DimType.IsMeasurementObject() {
				continue
			}
			instEventID, ok := inst.Address.EventID()
			if !ok {
				continue
			}
			instEvent, ok := a.reg.Events.FindByID(instEventID)
			if !ok || instEvent.Name != ev.Name {
				continue
			}
			a.printf(" %s", inst.UniqueName(a.reg))
		}
		a.printf(" /end REF_MEASUREMENT /end GROUP\n")
	}

	segs := a.reg.CalSegs.All()
	if len(segs) > 0 {
		a.printf("/begin GROUP Characteristics \"\" ROOT /begin SUB_GROUP")
		for _, s := range segs {
			a.printf(" %s", s.Name)
		}
		a.printf(" /end SUB_GROUP /end GROUP\n")
	}

	for _, s := range segs {
		n := 0
		for _, inst := range a.reg.Instances.All() {
			calsegName, ok := inst.Address.CalSegName()
			if !ok || calsegName != s.Name {
				continue
			}
			n++
			if n == 1 {
				a.printf("/begin GROUP %s \"\" /begin REF_CHARACTERISTIC", s.Name)
			}
			a.printf(" %s", inst.Name)
		}
		if n > 0 {
			a.printf(" /end REF_CHARACTERISTIC /end GROUP\n")
		}
	}
}

func (a *Writer) writeCalSeg(seg registry.CalSegEntry) {
	name := seg.PrefixedName(a.reg.AppName(), a.reg.PrefixNames)
	a.printf("/begin MEMORY_SEGMENT %s \"\" DATA RAM INTERN 0x%X %d -1 -1 -1 -1 -1\n", name, seg.Addr, seg.Size)
	a.printf("  /begin IF_DATA XCP\n    /begin SEGMENT 0x%X 2 0 0 0\n", seg.Index+1)
	a.printf("      /begin CHECKSUM XCP_ADD_44 MAX_BLOCK_SIZE 0xFFFF /end CHECKSUM\n")
	a.printf("      /begin PAGE 0x0 ECU_ACCESS_WITH_XCP_ONLY XCP_READ_ACCESS_WITH_ECU_ONLY XCP_WRITE_ACCESS_NOT_ALLOWED /end PAGE\n")
	a.printf("      /begin PAGE 0x1 ECU_ACCESS_WITH_XCP_ONLY XCP_READ_ACCESS_WITH_ECU_ONLY XCP_WRITE_ACCESS_WITH_ECU_ONLY /end PAGE\n")
	a.printf("    /end SEGMENT\n  /end IF_DATA\n/end MEMORY_SEGMENT\n")
}
