package xcp

import (
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rob-gra/xcp-lite/calseg"
	"github.com/rob-gra/xcp-lite/clog"
	"github.com/rob-gra/xcp-lite/daq"
	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/registry"
	"github.com/rob-gra/xcp-lite/registry/a2l"
	"github.com/rob-gra/xcp-lite/xcpproto"
)

var log = clog.NewLogger("xcp")

// TransportLayer selects the wire protocol of the server's Ethernet
// transport.
type TransportLayer int

const (
	TransportUDP TransportLayer = iota
	TransportTCP
)

func (t TransportLayer) protocolName() string {
	if t == TransportTCP {
		return "TCP"
	}
	return "UDP"
}

// Xcp is the measurement and calibration runtime's orchestrator:
// the registry, the event and calibration-segment lists, the active
// calibration page state, and the protocol glue callbacks the transport
// layer drives on every XCP command. Build one with New and configure it
// with its fluent Set* methods before calling Connect.
type Xcp struct {
	reg     *registry.Registry
	events  *eventList
	calSegs *calSegList

	ecuCalPage atomic.Uint32 // calseg.PageMode
	xcpCalPage atomic.Uint32 // calseg.PageMode

	epkMu sync.Mutex
	epk   string

	a2lPath    string
	a2lWritten atomic.Bool

	tl         TransportLayer
	addr       net.IP
	port       uint16
	segmentLen uint16
}

// New creates an idle Xcp instance named appName (used as the registry's
// application name and the default A2L file stem). Chain the Set*
// configuration methods, then Connect.
func New(appName string) *Xcp {
	x := &Xcp{
		reg:     registry.New(),
		events:  newEventList(),
		calSegs: newCalSegList(),
		epk:     "DEFAULT_EPK",
	}
	x.reg.SetAppInfo(mcid.NewIdentifier(appName), "", 0)
	x.a2lPath = appName + ".a2l"
	return x
}

// SetAppName overrides the registry's application name and the default A2L
// file stem. A path set by SetA2LPath is kept.
func (x *Xcp) SetAppName(name string) *Xcp {
	if x.a2lPath == x.reg.AppName()+".a2l" {
		x.a2lPath = name + ".a2l"
	}
	x.reg.Application.Name = mcid.NewIdentifier(name)
	return x
}

// SetAppRevision sets the EPK software-version string the XCP client
// checks the A2L file against, stored at the EPK virtual address.
func (x *Xcp) SetAppRevision(epk string) *Xcp {
	x.epkMu.Lock()
	x.epk = epk
	x.epkMu.Unlock()
	x.reg.SetAppVersion(epk, mcaddr.EPKAddr)
	return x
}

// SetLogLevel enables or disables this package's clog logger based on
// level (any level but LogOff enables it). The loggers of the other
// packages are not affected.
func (x *Xcp) SetLogLevel(level LogLevel) *Xcp {
	enable := level != LogOff
	log.LogMode(enable)
	return x
}

// RegistryMode configures whether the registry flattens typedef-typed
// instances into scalar fields on freeze (see registry.FlattenTypedefs),
// and whether every A2L name is prefixed with the application name.
type RegistryMode struct {
	FlattenTypedefs bool
	PrefixNames     bool
}

// SetRegistryMode applies m to the underlying registry.
func (x *Xcp) SetRegistryMode(m RegistryMode) *Xcp {
	x.reg.FlattenTypedefs = m.FlattenTypedefs
	x.reg.PrefixNames = m.PrefixNames
	return x
}

// SetA2LPath overrides the A2L file path WriteA2L emits to (default:
// "<appName>.a2l").
func (x *Xcp) SetA2LPath(path string) *Xcp {
	x.a2lPath = path
	return x
}

// StartServer records the Ethernet transport layer parameters (protocol,
// address, port, max DAQ segment size) into the registry's A2L
// XCP_ON_{PROTO}_IP block and marks the server configured. It does not
// itself bind a socket: package transport owns the listener and calls into
// this orchestrator's protocol glue (Connect/GetCalPage/.../Flush) per
// incoming command.
func (x *Xcp) StartServer(tl TransportLayer, addr net.IP, port uint16, segmentSize uint16) error {
	if addr == nil {
		return fmt.Errorf("xcp: StartServer: nil address")
	}
	x.tl = tl
	x.addr = addr
	x.port = port
	x.segmentLen = segmentSize
	x.reg.SetXCPParams(tl.protocolName(), addr, port)
	log.Debug("start server proto=%s addr=%s port=%d segment=%d", tl.protocolName(), addr, port, segmentSize)
	return nil
}

//------------------------------------------------------------------------------------------
// Calibration page mode, satisfying calseg.PageModeProvider

// CalPageMode returns the page the XCP tool's UPLOAD/DOWNLOAD path
// currently reads and writes through (calseg.CalSeg.Read/Write).
func (x *Xcp) CalPageMode() calseg.PageMode {
	return calseg.PageMode(x.xcpCalPage.Load())
}

// EcuCalPageMode returns the page the application's own read path
// currently sees (calseg.CalSeg.ReadLock), independently settable from
// CalPageMode via SET_CAL_PAGE's ECU mode bit.
func (x *Xcp) EcuCalPageMode() calseg.PageMode {
	return calseg.PageMode(x.ecuCalPage.Load())
}

func (x *Xcp) setEcuCalPage(p calseg.PageMode) { x.ecuCalPage.Store(uint32(p)) }
func (x *Xcp) setXcpCalPage(p calseg.PageMode) { x.xcpCalPage.Store(uint32(p)) }
func (x *Xcp) getEcuCalPage() calseg.PageMode  { return calseg.PageMode(x.ecuCalPage.Load()) }
func (x *Xcp) getXcpCalPage() calseg.PageMode  { return calseg.PageMode(x.xcpCalPage.Load()) }

//------------------------------------------------------------------------------------------
// Events

// CreateEvent allocates a new measurement trigger point named name.
func (x *Xcp) CreateEvent(name string) daq.XcpEvent { return x.events.createEvent(name, false) }

// CreateEventInstance allocates a new measurement trigger point named
// name, sharing that name with other same-named events already created
// (each gets a distinct 1-based Index), for per-thread-instance events.
func (x *Xcp) CreateEventInstance(name string) daq.XcpEvent { return x.events.createEvent(name, true) }

// NewDaqEvent creates a DaqEvent for event, registering its instances
// against x's registry.
func (x *Xcp) NewDaqEvent(event daq.XcpEvent, captureBufferSize int) *daq.DaqEvent {
	return daq.New(x.reg, event, captureBufferSize)
}

//------------------------------------------------------------------------------------------
// Registry access

// Registry returns the underlying registry, for packages that register
// instances directly (package daq) or read it back.
func (x *Xcp) Registry() *registry.Registry { return x.reg }

//------------------------------------------------------------------------------------------
// A2L generation

// WriteA2L registers every calibration segment and event into the
// registry, freezes it, and writes the A2L file to its configured path.
// Safe to call more than once: after the first successful write the
// registry is frozen and further calls are no-ops, matching the original's
// "a2l is no longer needed, free memory" behavior.
func (x *Xcp) WriteA2L() error {
	if x.a2lWritten.Load() {
		return nil
	}

	x.calSegs.register(x.reg)
	x.events.register(x.reg, nil)

	x.reg.Freeze()

	f, err := os.Create(x.a2lPath)
	if err != nil {
		return fmt.Errorf("xcp: create a2l file: %w", err)
	}
	defer f.Close()

	if err := a2l.Write(f, x.reg); err != nil {
		return fmt.Errorf("xcp: write a2l: %w", err)
	}

	x.a2lWritten.Store(true)
	log.Debug("wrote a2l file %s", x.a2lPath)
	return nil
}

//------------------------------------------------------------------------------------------
// Protocol glue: the callback contract package transport drives on every
// incoming XCP command, mirroring cb_connect/cb_get_cal_page/
// cb_set_cal_page/cb_init_cal/cb_freeze_cal/cb_read/cb_write/cb_flush.

// Connect handles the XCP CONNECT command: it lazily emits the A2L file on
// first tool connection.
func (x *Xcp) Connect() xcpproto.Status {
	if err := x.WriteA2L(); err != nil {
		log.Error("connect: write a2l failed: %s", err)
	}
	return xcpproto.CmdOK
}

// GetCalPage handles GET_CAL_PAGE. mode selects which page (ECU or XCP) to
// report; xcpproto.InvalidCalPage is returned for any other mode bit,
// matching the original's bare 0xFF return (not itself a CRC_* status).
func (x *Xcp) GetCalPage(mode xcpproto.CalPageMode) uint8 {
	switch {
	case mode.Has(xcpproto.CalPageModeECU):
		return uint8(x.getEcuCalPage())
	case mode.Has(xcpproto.CalPageModeXCP):
		return uint8(x.getXcpCalPage())
	default:
		return xcpproto.InvalidCalPage
	}
}

// SetCalPage handles SET_CAL_PAGE. Switching individual segments
// (CAL_PAGE_MODE_ALL unset) is rejected, matching the original: CANape's
// per-segment switching option is buggy and unneeded here.
func (x *Xcp) SetCalPage(page uint8, mode xcpproto.CalPageMode) xcpproto.Status {
	if !mode.Has(xcpproto.CalPageModeAll) {
		return xcpproto.CRCPageModeInvalid
	}
	p := calseg.PageMode(page)
	if mode.Has(xcpproto.CalPageModeECU) {
		x.setEcuCalPage(p)
	}
	if mode.Has(xcpproto.CalPageModeXCP) {
		x.setXcpCalPage(p)
	}
	return xcpproto.CmdOK
}

// InitCal handles INIT_CAL: requests every calibration segment reset its
// mutable page back to its default (FLASH) contents on its next Sync.
func (x *Xcp) InitCal() xcpproto.Status {
	x.calSegs.setInitRequest()
	return xcpproto.CmdOK
}

// FreezeCal handles FREEZE_CAL: requests every calibration segment persist
// its mutable page to "<name>.json" on its next Sync.
func (x *Xcp) FreezeCal() xcpproto.Status {
	x.calSegs.setFreezeRequest()
	return xcpproto.CmdOK
}

// Read handles XCP UPLOAD of calibration memory at addr, an application
// address with the high bit set (mcaddr.DecodeCalSegAddr): index 0 is the
// reserved EPK virtual region, any other index addresses a calibration
// segment.
func (x *Xcp) Read(addr uint32, length uint8, dst []byte) xcpproto.Status {
	index, offset, isEPK, ok := mcaddr.DecodeCalSegAddr(addr)
	if !ok || length == 0 {
		return xcpproto.CRCAccessDenied
	}

	if isEPK {
		x.epkMu.Lock()
		epk := x.epk
		x.epkMu.Unlock()
		end := int(offset) + int(length)
		if end > len(epk) || len(epk) > 0xFF {
			return xcpproto.CRCAccessDenied
		}
		copy(dst, epk[offset:end])
		return xcpproto.CmdOK
	}

	if !x.calSegs.readFrom(index, offset, length, dst) {
		return xcpproto.CRCAccessDenied
	}
	return xcpproto.CmdOK
}

// Write handles XCP DOWNLOAD of calibration memory at addr. The EPK region
// is read only.
func (x *Xcp) Write(addr uint32, length uint8, src []byte, delay uint8) xcpproto.Status {
	index, offset, isEPK, ok := mcaddr.DecodeCalSegAddr(addr)
	if !ok || length == 0 {
		return xcpproto.CRCAccessDenied
	}
	if isEPK {
		return xcpproto.CRCAccessDenied
	}
	if !x.calSegs.writeTo(index, offset, length, src, delay) {
		return xcpproto.CRCAccessDenied
	}
	return xcpproto.CmdOK
}

// Flush handles the transport's periodic flush: publishes every pending
// delayed calibration write.
func (x *Xcp) Flush() xcpproto.Status {
	x.calSegs.flush()
	return xcpproto.CmdOK
}

var _ calseg.PageModeProvider = (*Xcp)(nil)
