// Package xcpproto carries the wire-level constants shared by mcaddr, xcp
// and transport: XCP command response codes and calibration-page mode
// bits, grounded in xcp-lite's C-ABI callback contract.
package xcpproto

// Status is an XCP command response code, returned by the protocol glue
// callbacks to the transport.
type Status uint8

// Command response codes, mirroring the original's CRC_* constants.
const (
	CmdOK              Status = 0x00
	CRCCmdUnknown      Status = 0x20
	CRCAccessDenied    Status = 0x24
	CRCPageModeInvalid Status = 0x27
	CRCModeNotValid    Status = 0x2F
)

// ResponsePID and ErrorPID are the first byte of every XCP response packet,
// distinguishing a positive response from an error response carrying a
// Status code as its second byte.
const (
	ResponsePID byte = 0xFF
	ErrorPID    byte = 0xFE
)

// InvalidCalPage is the sentinel GetCalPage return for an unrecognized mode
// bit (the original's bare 0xFF return, which is not itself a CRC_* code).
const InvalidCalPage uint8 = 0xFF

// CalPageMode bits select which page(s) a get/set cal page command targets.
type CalPageMode uint8

const (
	CalPageModeECU CalPageMode = 0x01
	CalPageModeXCP CalPageMode = 0x02
	CalPageModeAll CalPageMode = 0x80
)

// Has reports whether mode carries the given bit.
func (m CalPageMode) Has(bit CalPageMode) bool { return m&bit != 0 }

// MaxEvents bounds the total number of events one Xcp instance may create,
// per spec ("≥ 1024"); the original Rust XCP_MAX_EVENTS is 256, this module
// follows the larger spec bound literally.
const MaxEvents = 1024

// MaxEventInstances bounds the 1-based instance_index a single indexed
// event name may reach.
const MaxEventInstances = 255

// EPKSegmentIndex is the reserved calibration-segment index (as decoded
// from the high 16 bits of a segment-relative address) that addresses the
// EPK virtual memory region instead of a real calibration segment.
const EPKSegmentIndex uint16 = 0
