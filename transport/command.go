package transport

import (
	"encoding/binary"

	"github.com/rob-gra/xcp-lite/xcpproto"
)

// CommandHandler is the protocol glue a session dispatches decoded commands
// to. xcp.Xcp satisfies it directly with its Connect/GetCalPage/.../Flush
// methods; package xcp is not imported here so transport stays usable
// against a stub in tests without pulling in the whole orchestrator.
type CommandHandler interface {
	Connect() xcpproto.Status
	GetCalPage(mode xcpproto.CalPageMode) uint8
	SetCalPage(page uint8, mode xcpproto.CalPageMode) xcpproto.Status
	InitCal() xcpproto.Status
	FreezeCal() xcpproto.Status
	Read(addr uint32, length uint8, dst []byte) xcpproto.Status
	Write(addr uint32, length uint8, src []byte, delay uint8) xcpproto.Status
	Flush() xcpproto.Status
}

// UnknownCommandHandler decodes any command opcode outside this package's
// native subset - the documented external-collaborator boundary for full
// ASAM XCP command-set compliance (DAQ list construction, seed/key,
// programming, ...), which this runtime does not implement.
type UnknownCommandHandler interface {
	// Unknown is called with the full command packet (opcode plus
	// payload) and returns the response payload to send back with
	// CmdOK, or another status (such as CRCCmdUnknown when it does not
	// recognize the command either), which the session reports as is.
	Unknown(cmd []byte) (resp []byte, status xcpproto.Status)
}

// opcode is this package's minimal subset of ASAM XCP standard command
// codes. Every other byte value falls through to UnknownCommandHandler.
type opcode byte

const (
	opConnect     opcode = 0xFF
	opSynch       opcode = 0xFC
	opSetMTA      opcode = 0xF6
	opUpload      opcode = 0xF5
	opShortUpload opcode = 0xF4
	opDownload    opcode = 0xF0
	opGetCalPage  opcode = 0xEA
	opSetCalPage  opcode = 0xEB
	opUserCmd     opcode = 0xF1
)

// opUserCmd sub-codes: INIT_CAL and FREEZE_CAL have no dedicated opcode in
// the ASAM standard (real tools issue them as vendor USER_CMD extensions),
// so this runtime carries them as USER_CMD sub-commands.
const (
	userCmdInitCal   byte = 0x00
	userCmdFreezeCal byte = 0x01
)

// mta is a session's memory transfer address, set by SET_MTA and consumed
// (and auto-incremented) by UPLOAD and DOWNLOAD, mirroring the ASAM
// "pointer" addressing style those two commands share.
type mta struct {
	addr uint32
	ext  uint8
}

// dispatch decodes one command packet and returns its response payload
// (without the leading PID byte - the caller attaches ResponsePID or
// ErrorPID) and the status to report.
func dispatch(h CommandHandler, u UnknownCommandHandler, m *mta, cmd []byte) ([]byte, xcpproto.Status) {
	if len(cmd) == 0 {
		return nil, xcpproto.CRCCmdUnknown
	}

	switch opcode(cmd[0]) {
	case opConnect:
		return nil, h.Connect()

	case opSynch:
		return nil, h.Flush()

	case opSetMTA:
		if len(cmd) < 6 {
			return nil, xcpproto.CRCCmdUnknown
		}
		m.ext = cmd[1]
		m.addr = binary.LittleEndian.Uint32(cmd[2:6])
		return nil, xcpproto.CmdOK

	case opShortUpload:
		if len(cmd) < 7 {
			return nil, xcpproto.CRCCmdUnknown
		}
		length := cmd[1]
		addr := binary.LittleEndian.Uint32(cmd[3:7])
		dst := make([]byte, length)
		status := h.Read(addr, length, dst)
		if status != xcpproto.CmdOK {
			return nil, status
		}
		return dst, xcpproto.CmdOK

	case opUpload:
		if len(cmd) < 2 {
			return nil, xcpproto.CRCCmdUnknown
		}
		length := cmd[1]
		dst := make([]byte, length)
		status := h.Read(m.addr, length, dst)
		if status != xcpproto.CmdOK {
			return nil, status
		}
		m.addr += uint32(length)
		return dst, xcpproto.CmdOK

	case opDownload:
		if len(cmd) < 2 {
			return nil, xcpproto.CRCCmdUnknown
		}
		length := cmd[1]
		data := cmd[2:]
		if len(data) < int(length) {
			return nil, xcpproto.CRCCmdUnknown
		}
		status := h.Write(m.addr, length, data[:length], 0)
		if status != xcpproto.CmdOK {
			return nil, status
		}
		m.addr += uint32(length)
		return nil, xcpproto.CmdOK

	case opGetCalPage:
		if len(cmd) < 2 {
			return nil, xcpproto.CRCCmdUnknown
		}
		mode := xcpproto.CalPageMode(cmd[1])
		return []byte{0, h.GetCalPage(mode)}, xcpproto.CmdOK

	case opSetCalPage:
		if len(cmd) < 4 {
			return nil, xcpproto.CRCCmdUnknown
		}
		mode := xcpproto.CalPageMode(cmd[1])
		page := cmd[3]
		return nil, h.SetCalPage(page, mode)

	case opUserCmd:
		if len(cmd) < 2 {
			return nil, xcpproto.CRCCmdUnknown
		}
		switch cmd[1] {
		case userCmdInitCal:
			return nil, h.InitCal()
		case userCmdFreezeCal:
			return nil, h.FreezeCal()
		default:
			return nil, xcpproto.CRCCmdUnknown
		}

	default:
		if u == nil {
			return nil, xcpproto.CRCCmdUnknown
		}
		return u.Unknown(cmd)
	}
}
