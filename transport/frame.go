package transport

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the byte size of the XCP transport-layer header prefixing
// every CTO and DTO packet: a little-endian LEN then a little-endian CTR,
// per the ASAM XCP-on-Ethernet transport layer specification.
const HeaderSize = 4

// header is the decoded form of a packet's LEN/CTR prefix.
type header struct {
	len uint16 // payload length, not including the header itself
	ctr uint16 // per-direction monotonic packet counter
}

// encodeFrame prepends a LEN/CTR header to payload, mirroring the manual
// byte-packing style of cs104's newIFrame/newSFrame/newUFrame.
func encodeFrame(ctr uint16, payload []byte) []byte {
	b := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(b[0:2], uint16(len(payload)))
	binary.LittleEndian.PutUint16(b[2:4], ctr)
	copy(b[HeaderSize:], payload)
	return b
}

// parseFrame splits one length-delimited frame off the front of buf,
// mirroring cs104's parse: it returns the decoded header, the payload
// slice, and the remaining unconsumed bytes. ok is false if buf does not
// yet hold a complete frame.
func parseFrame(buf []byte) (h header, payload []byte, rest []byte, ok bool) {
	if len(buf) < HeaderSize {
		return header{}, nil, buf, false
	}
	h.len = binary.LittleEndian.Uint16(buf[0:2])
	h.ctr = binary.LittleEndian.Uint16(buf[2:4])
	if len(buf) < HeaderSize+int(h.len) {
		return header{}, nil, buf, false
	}
	end := HeaderSize + int(h.len)
	return h, buf[HeaderSize:end], buf[end:], true
}

func (h header) String() string {
	return fmt.Sprintf("Frame[len=%d, ctr=%d]", h.len, h.ctr)
}
