package transport

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/rob-gra/xcp-lite/xcpproto"
)

func TestEncodeParseFrameRoundTrips(t *testing.T) {
	payload := []byte{0xFF, 1, 2, 3}
	encoded := encodeFrame(7, payload)

	h, got, rest, ok := parseFrame(encoded)
	if !ok {
		t.Fatal("parseFrame: not ok")
	}
	if h.ctr != 7 {
		t.Fatalf("ctr = %d, want 7", h.ctr)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %v, want %v", got, payload)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %v, want empty", rest)
	}
}

func TestParseFrameIncompleteReturnsNotOK(t *testing.T) {
	_, _, rest, ok := parseFrame([]byte{4, 0, 1, 0, 0xAA})
	if ok {
		t.Fatal("expected incomplete frame to not parse")
	}
	if len(rest) != 5 {
		t.Fatal("incomplete frame should return its input unchanged as rest")
	}
}

func TestParseFrameConsumesOnlyOneFrameFromBuffer(t *testing.T) {
	buf := append(encodeFrame(1, []byte{0xAA}), encodeFrame(2, []byte{0xBB, 0xCC})...)

	h1, p1, rest, ok := parseFrame(buf)
	if !ok || h1.ctr != 1 || !bytes.Equal(p1, []byte{0xAA}) {
		t.Fatalf("first frame decode wrong: %v %v %v", h1, p1, ok)
	}

	h2, p2, rest2, ok := parseFrame(rest)
	if !ok || h2.ctr != 2 || !bytes.Equal(p2, []byte{0xBB, 0xCC}) {
		t.Fatalf("second frame decode wrong: %v %v %v", h2, p2, ok)
	}
	if len(rest2) != 0 {
		t.Fatal("expected no bytes left")
	}
}

// stubHandler is a CommandHandler test double recording calls and replaying
// canned responses.
type stubHandler struct {
	connectCalls int
	calPage      uint8
	setPageMode  xcpproto.CalPageMode
	setPageVal   uint8
	initCalls    int
	freezeCalls  int
	flushCalls   int
	mem          map[uint32][]byte
	writeStatus  xcpproto.Status
}

func newStubHandler() *stubHandler {
	return &stubHandler{mem: make(map[uint32][]byte)}
}

func (s *stubHandler) Connect() xcpproto.Status { s.connectCalls++; return xcpproto.CmdOK }
func (s *stubHandler) GetCalPage(mode xcpproto.CalPageMode) uint8 { return s.calPage }
func (s *stubHandler) SetCalPage(page uint8, mode xcpproto.CalPageMode) xcpproto.Status {
	s.setPageMode, s.setPageVal = mode, page
	return xcpproto.CmdOK
}
func (s *stubHandler) InitCal() xcpproto.Status   { s.initCalls++; return xcpproto.CmdOK }
func (s *stubHandler) FreezeCal() xcpproto.Status { s.freezeCalls++; return xcpproto.CmdOK }
func (s *stubHandler) Read(addr uint32, length uint8, dst []byte) xcpproto.Status {
	data, ok := s.mem[addr]
	if !ok || len(data) < int(length) {
		return xcpproto.CRCAccessDenied
	}
	copy(dst, data[:length])
	return xcpproto.CmdOK
}
func (s *stubHandler) Write(addr uint32, length uint8, src []byte, delay uint8) xcpproto.Status {
	if s.writeStatus != xcpproto.CmdOK {
		return s.writeStatus
	}
	data := make([]byte, length)
	copy(data, src)
	s.mem[addr] = data
	return xcpproto.CmdOK
}
func (s *stubHandler) Flush() xcpproto.Status { s.flushCalls++; return xcpproto.CmdOK }

func TestDispatchConnect(t *testing.T) {
	h := newStubHandler()
	_, status := dispatch(h, nil, &mta{}, []byte{byte(opConnect)})
	if status != xcpproto.CmdOK || h.connectCalls != 1 {
		t.Fatalf("connect not dispatched: status=%v calls=%d", status, h.connectCalls)
	}
}

func TestDispatchSetMTAThenUploadReadsFromMTA(t *testing.T) {
	h := newStubHandler()
	h.mem[0x1234] = []byte{9, 9, 9, 9}
	m := &mta{}

	setMTA := append([]byte{byte(opSetMTA), 0}, leUint32(0x1234)...)
	if _, status := dispatch(h, nil, m, setMTA); status != xcpproto.CmdOK {
		t.Fatalf("set mta status = %v", status)
	}
	if m.addr != 0x1234 {
		t.Fatalf("mta.addr = %#x, want 0x1234", m.addr)
	}

	resp, status := dispatch(h, nil, m, []byte{byte(opUpload), 4})
	if status != xcpproto.CmdOK {
		t.Fatalf("upload status = %v", status)
	}
	if !bytes.Equal(resp, []byte{9, 9, 9, 9}) {
		t.Fatalf("upload resp = %v", resp)
	}
	if m.addr != 0x1234+4 {
		t.Fatalf("mta not advanced: %#x", m.addr)
	}
}

func TestDispatchShortUploadDoesNotNeedMTA(t *testing.T) {
	h := newStubHandler()
	h.mem[0x10] = []byte{1, 2}

	cmd := append([]byte{byte(opShortUpload), 2, 0}, leUint32(0x10)...)
	resp, status := dispatch(h, nil, &mta{}, cmd)
	if status != xcpproto.CmdOK {
		t.Fatalf("short upload status = %v", status)
	}
	if !bytes.Equal(resp, []byte{1, 2}) {
		t.Fatalf("resp = %v", resp)
	}
}

func TestDispatchDownloadWritesThenAdvancesMTA(t *testing.T) {
	h := newStubHandler()
	m := &mta{addr: 0x20}

	cmd := []byte{byte(opDownload), 3, 0xAA, 0xBB, 0xCC}
	if _, status := dispatch(h, nil, m, cmd); status != xcpproto.CmdOK {
		t.Fatalf("download status = %v", status)
	}
	if !bytes.Equal(h.mem[0x20], []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("mem = %v", h.mem[0x20])
	}
	if m.addr != 0x23 {
		t.Fatalf("mta = %#x, want 0x23", m.addr)
	}
}

func TestDispatchDownloadRejectsAccessDenied(t *testing.T) {
	h := newStubHandler()
	h.writeStatus = xcpproto.CRCAccessDenied
	_, status := dispatch(h, nil, &mta{}, []byte{byte(opDownload), 1, 0})
	if status != xcpproto.CRCAccessDenied {
		t.Fatalf("status = %v, want CRCAccessDenied", status)
	}
}

func TestDispatchGetSetCalPage(t *testing.T) {
	h := newStubHandler()
	h.calPage = 1

	resp, status := dispatch(h, nil, &mta{}, []byte{byte(opGetCalPage), byte(xcpproto.CalPageModeXCP)})
	if status != xcpproto.CmdOK || resp[1] != 1 {
		t.Fatalf("get cal page: resp=%v status=%v", resp, status)
	}

	_, status = dispatch(h, nil, &mta{}, []byte{byte(opSetCalPage), byte(xcpproto.CalPageModeXCP), 0, 2})
	if status != xcpproto.CmdOK || h.setPageVal != 2 {
		t.Fatalf("set cal page not applied: status=%v page=%d", status, h.setPageVal)
	}
}

func TestDispatchUserCmdInitAndFreezeCal(t *testing.T) {
	h := newStubHandler()
	if _, status := dispatch(h, nil, &mta{}, []byte{byte(opUserCmd), userCmdInitCal}); status != xcpproto.CmdOK || h.initCalls != 1 {
		t.Fatalf("init cal not dispatched: status=%v calls=%d", status, h.initCalls)
	}
	if _, status := dispatch(h, nil, &mta{}, []byte{byte(opUserCmd), userCmdFreezeCal}); status != xcpproto.CmdOK || h.freezeCalls != 1 {
		t.Fatalf("freeze cal not dispatched: status=%v calls=%d", status, h.freezeCalls)
	}
}

func TestDispatchUnknownOpcodeWithoutHandlerReturnsCmdUnknown(t *testing.T) {
	h := newStubHandler()
	_, status := dispatch(h, nil, &mta{}, []byte{0x01, 0x02})
	if status != xcpproto.CRCCmdUnknown {
		t.Fatalf("status = %v, want CRCCmdUnknown", status)
	}
}

type recordingUnknownHandler struct {
	lastCmd []byte
}

func (r *recordingUnknownHandler) Unknown(cmd []byte) ([]byte, xcpproto.Status) {
	r.lastCmd = cmd
	return []byte{0x42}, xcpproto.CmdOK
}

func TestDispatchUnknownOpcodeDelegatesToHandler(t *testing.T) {
	h := newStubHandler()
	u := &recordingUnknownHandler{}
	resp, status := dispatch(h, u, &mta{}, []byte{0x01, 0x02})
	if status != xcpproto.CmdOK || !bytes.Equal(resp, []byte{0x42}) {
		t.Fatalf("resp=%v status=%v", resp, status)
	}
	if !bytes.Equal(u.lastCmd, []byte{0x01, 0x02}) {
		t.Fatal("unknown handler did not see the raw command")
	}
}

func TestDTOQueueSampleThenDrain(t *testing.T) {
	q := newDTOQueue(4)
	q.Sample(3, []byte{1, 2, 3})

	stop := make(chan struct{})
	frame, ok := q.drain(stop)
	if !ok {
		t.Fatal("drain: not ok")
	}
	if frame.eventID != 3 || !bytes.Equal(frame.data, []byte{1, 2, 3}) {
		t.Fatalf("frame = %+v", frame)
	}
}

func TestDTOQueueSampleCopiesBuffer(t *testing.T) {
	q := newDTOQueue(4)
	base := []byte{1, 2, 3}
	q.Sample(1, base)
	base[0] = 0xFF // mutate after sampling, as the real trigger path reuses its buffer

	stop := make(chan struct{})
	frame, _ := q.drain(stop)
	if frame.data[0] != 1 {
		t.Fatal("dtoQueue.Sample did not copy the buffer")
	}
}

func TestDTOQueueDropsWhenFull(t *testing.T) {
	q := newDTOQueue(1)
	q.Sample(1, []byte{1})
	q.Sample(1, []byte{2}) // dropped, queue already full

	if got := q.droppedCount(); got != 1 {
		t.Fatalf("droppedCount = %d, want 1", got)
	}
}

func TestDTOFrameEncodeLayout(t *testing.T) {
	f := dtoFrame{eventID: 5, data: []byte{0xAB}, timestamp: time.Unix(0, 1234)}
	encoded := f.encode()

	if binary.LittleEndian.Uint16(encoded[0:2]) != 5 {
		t.Fatal("event id not at offset 0")
	}
	if binary.LittleEndian.Uint64(encoded[2:10]) != 1234 {
		t.Fatal("timestamp not at offset 2")
	}
	if encoded[10] != 0xAB {
		t.Fatal("payload not at offset 10")
	}
}

func TestConfigValidAppliesDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.Valid(); err != nil {
		t.Fatalf("Valid() = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, DefaultConfig())
	}
}

func TestConfigValidRejectsOutOfRangeQueueSize(t *testing.T) {
	cfg := Config{QueueSize: QueueSizeMax + 1}
	if err := cfg.Valid(); err == nil {
		t.Fatal("expected error for oversized QueueSize")
	}
}

func leUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
