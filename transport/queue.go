package transport

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/rob-gra/xcp-lite/clog"
)

var log = clog.NewLogger("transport")

// dtoFrame is one measurement sample pending delivery to a connected tool:
// the triggering event, the captured bytes (a copy, since the caller's
// buffer is reused by the next trigger), and the wall-clock time of capture.
type dtoFrame struct {
	eventID   uint16
	data      []byte
	timestamp time.Time
}

// encode projects a dtoFrame onto the wire payload this package sends it
// as: a 2-byte event id, an 8-byte nanosecond Unix timestamp, then the
// captured bytes.
func (f dtoFrame) encode() []byte {
	b := make([]byte, 10+len(f.data))
	binary.LittleEndian.PutUint16(b[0:2], f.eventID)
	binary.LittleEndian.PutUint64(b[2:10], uint64(f.timestamp.UnixNano()))
	copy(b[10:], f.data)
	return b
}

// dtoQueue is a bounded, non-blocking FIFO of pending DTO frames for one
// connected tool. It implements daq.Sampler: Sample runs on the
// application's measurement-trigger path and must never block, matching
// the "hot measurement trigger path does not take any lock" requirement -
// a full queue drops the newest frame and counts the drop rather than
// blocking the triggering thread.
type dtoQueue struct {
	frames  chan dtoFrame
	dropped atomic.Uint64
}

func newDTOQueue(capacity int) *dtoQueue {
	return &dtoQueue{frames: make(chan dtoFrame, capacity)}
}

// Sample implements daq.Sampler. It copies base (the triggering event's
// capture buffer, about to be reused) into an owned frame and enqueues it.
func (q *dtoQueue) Sample(eventID uint16, base []byte) {
	data := make([]byte, len(base))
	copy(data, base)
	frame := dtoFrame{eventID: eventID, data: data, timestamp: time.Now()}
	select {
	case q.frames <- frame:
	default:
		q.dropped.Add(1)
	}
}

// drain blocks until a frame is available or stop is closed, returning
// ok=false once stop fires with the queue empty.
func (q *dtoQueue) drain(stop <-chan struct{}) (dtoFrame, bool) {
	select {
	case f := <-q.frames:
		return f, true
	case <-stop:
		select {
		case f := <-q.frames:
			return f, true
		default:
			return dtoFrame{}, false
		}
	}
}

func (q *dtoQueue) droppedCount() uint64 { return q.dropped.Load() }
