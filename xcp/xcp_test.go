package xcp

import (
	"net"
	"os"
	"testing"

	"github.com/rob-gra/xcp-lite/calseg"
	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/xcpproto"
)

type testParams struct {
	Gain   float32
	Offset float32
}

func newTestXcp(t *testing.T) *Xcp {
	t.Helper()
	x := New("test_app")
	x.SetA2LPath(t.TempDir() + "/test_app.a2l")
	return x
}

func TestConnectWritesA2LOnceAndIsIdempotent(t *testing.T) {
	x := newTestXcp(t)
	x.CreateEvent("task")
	CreateCalSeg(x, "params", testParams{Gain: 1.0}, testParams{Gain: 1.0})

	if status := x.Connect(); status != xcpproto.CmdOK {
		t.Fatalf("Connect() = %v, want CmdOK", status)
	}
	info, err := os.Stat(x.a2lPath)
	if err != nil {
		t.Fatalf("a2l file not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("a2l file is empty")
	}

	if status := x.Connect(); status != xcpproto.CmdOK {
		t.Fatalf("second Connect() = %v, want CmdOK", status)
	}
}

func TestGetCalPageReturnsInvalidSentinelForUnknownMode(t *testing.T) {
	x := newTestXcp(t)
	if got := x.GetCalPage(0); got != xcpproto.InvalidCalPage {
		t.Fatalf("GetCalPage(0) = %#x, want %#x", got, xcpproto.InvalidCalPage)
	}
}

func TestSetCalPageRejectsIndividualSegmentSwitching(t *testing.T) {
	x := newTestXcp(t)
	status := x.SetCalPage(uint8(calseg.PageFlash), xcpproto.CalPageModeXCP)
	if status != xcpproto.CRCPageModeInvalid {
		t.Fatalf("SetCalPage without ALL bit = %v, want CRCPageModeInvalid", status)
	}
}

func TestSetCalPageThenGetCalPageRoundTrips(t *testing.T) {
	x := newTestXcp(t)
	status := x.SetCalPage(uint8(calseg.PageFlash), xcpproto.CalPageModeXCP|xcpproto.CalPageModeAll)
	if status != xcpproto.CmdOK {
		t.Fatalf("SetCalPage() = %v, want CmdOK", status)
	}
	if got := x.GetCalPage(xcpproto.CalPageModeXCP); got != uint8(calseg.PageFlash) {
		t.Fatalf("GetCalPage(XCP) = %d, want %d", got, calseg.PageFlash)
	}
}

func TestWriteThenReadRoundTripsThroughCalSegDispatch(t *testing.T) {
	x := newTestXcp(t)
	CreateCalSeg(x, "params", testParams{}, testParams{})

	_, addr := mcaddr.CalSegExtAddr(0, 0)

	src := []byte{0, 0, 0x40, 0x40} // 3.0f little-endian
	if status := x.Write(addr, 4, src, 0); status != xcpproto.CmdOK {
		t.Fatalf("Write() = %v, want CmdOK", status)
	}

	dst := make([]byte, 4)
	if status := x.Read(addr, 4, dst); status != xcpproto.CmdOK {
		t.Fatalf("Read() = %v, want CmdOK", status)
	}
	for i := range src {
		if src[i] != dst[i] {
			t.Fatalf("round trip mismatch at %d: wrote %v, read %v", i, src, dst)
		}
	}
}

func TestReadServesEPKAtReservedAddress(t *testing.T) {
	x := newTestXcp(t)
	x.SetAppRevision("MYEPK1")

	dst := make([]byte, 6)
	if status := x.Read(mcaddr.EPKAddr, 6, dst); status != xcpproto.CmdOK {
		t.Fatalf("Read(EPKAddr) = %v, want CmdOK", status)
	}
	if string(dst) != "MYEPK1" {
		t.Fatalf("epk = %q, want %q", dst, "MYEPK1")
	}
}

func TestWriteToEPKIsRejected(t *testing.T) {
	x := newTestXcp(t)
	if status := x.Write(mcaddr.EPKAddr, 4, make([]byte, 4), 0); status != xcpproto.CRCAccessDenied {
		t.Fatalf("Write(EPKAddr) = %v, want CRCAccessDenied", status)
	}
}

func TestCreateEventInstanceAssignsDistinctIndices(t *testing.T) {
	x := newTestXcp(t)
	a := x.CreateEventInstance("task")
	b := x.CreateEventInstance("task")
	if a.Index == b.Index {
		t.Fatalf("instance indices not distinct: %d, %d", a.Index, b.Index)
	}
	if a.ID == b.ID {
		t.Fatalf("instance ids not distinct: %d, %d", a.ID, b.ID)
	}
}

func TestCreateCalSegPanicsOnDuplicateName(t *testing.T) {
	x := newTestXcp(t)
	CreateCalSeg(x, "dup", testParams{}, testParams{})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate calseg name")
		}
	}()
	CreateCalSeg(x, "dup", testParams{}, testParams{})
}

func TestCreateEventPastMaxEventsReturnsUndefinedSentinel(t *testing.T) {
	x := newTestXcp(t)
	for i := 0; i < xcpproto.MaxEvents; i++ {
		if ev := x.CreateEvent("task"); ev.IsUndefined() {
			t.Fatalf("event %d: unexpected Undefined sentinel before MaxEvents reached", i)
		}
	}
	if ev := x.CreateEvent("overflow"); !ev.IsUndefined() {
		t.Fatalf("CreateEvent past MaxEvents = %+v, want the Undefined sentinel", ev)
	}
}

func TestStartServerRejectsNilAddress(t *testing.T) {
	x := newTestXcp(t)
	if err := x.StartServer(TransportUDP, nil, 5555, 1400); err == nil {
		t.Fatal("expected error for nil address")
	}
}

func TestStartServerRecordsTransportLayerParams(t *testing.T) {
	x := newTestXcp(t)
	if err := x.StartServer(TransportTCP, net.ParseIP("127.0.0.1"), 5555, 1400); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	if !x.Registry().HasXCPParams() {
		t.Fatal("expected registry to carry transport layer params")
	}
}
