package xcp

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/rob-gra/xcp-lite/calseg"
	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/registry"
)

// calSegDescriptor pairs a type-erased calseg.Handle with the page size
// CreateCalSeg measured at creation time (via unsafe.Sizeof on the still
// concretely-typed page), since calseg.Handle itself carries no size -
// the same split the original's CalSegDescriptor makes between the
// trait-object CalSegTrait and a size captured from mem::size_of::<T>().
type calSegDescriptor struct {
	handle calseg.Handle
	size   uint32
}

// calSegList holds a type-erased handle to every calibration segment
// created through one Xcp instance, so read/write/flush/freeze/init can be
// dispatched by registry index regardless of each segment's page struct
// type - the Go equivalent of the original's Vec<Box<dyn CalSegTrait>>.
type calSegList struct {
	mu   sync.Mutex
	segs []calSegDescriptor
}

func newCalSegList() *calSegList { return &calSegList{} }

func (l *calSegList) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.segs = nil
}

func (l *calSegList) indexOfLocked(name string) (int, bool) {
	for i, s := range l.segs {
		if s.handle.Name() == name {
			return i, true
		}
	}
	return 0, false
}

func (l *calSegList) byIndex(index uint16) (calseg.Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if int(index) >= len(l.segs) {
		return nil, false
	}
	return l.segs[index].handle, true
}

func (l *calSegList) setInitRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.segs {
		s.handle.RequestInit()
	}
}

func (l *calSegList) setFreezeRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.segs {
		s.handle.RequestFreeze()
	}
}

func (l *calSegList) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.segs {
		s.handle.Flush()
	}
}

func (l *calSegList) readFrom(index uint16, offset uint16, length uint8, dst []byte) bool {
	h, ok := l.byIndex(index)
	if !ok {
		return false
	}
	return h.Read(offset, length, dst)
}

func (l *calSegList) writeTo(index uint16, offset uint16, length uint8, src []byte, delay uint8) bool {
	h, ok := l.byIndex(index)
	if !ok {
		return false
	}
	return h.Write(offset, length, src, delay)
}

// register pushes every created segment into reg in name order, assigning
// its final registry index - which must equal the array position this
// package dispatches reads/writes by, so both are sorted identically here
// under the same lock.
func (l *calSegList) register(reg *registry.Registry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sort.SliceStable(l.segs, func(i, j int) bool { return l.segs[i].handle.Name() < l.segs[j].handle.Name() })

	for i, s := range l.segs {
		if err := reg.CalSegs.Add(mcid.NewIdentifier(s.handle.Name()), uint16(i), s.size); err != nil {
			log.Error("register calseg %s failed: %s", s.handle.Name(), err)
		}
	}
}

// CreateCalSeg creates a calibration segment named name, whose mutable
// contents start at initPage and whose immutable FLASH page is
// defaultPage, then registers its handle in x's calibration-segment list.
//
// This is a package-level generic function rather than a method on *Xcp,
// since Go methods cannot introduce their own type parameters.
func CreateCalSeg[T any](x *Xcp, name string, initPage, defaultPage T) *calseg.CalSeg[T] {
	var zero T
	size := uint32(unsafe.Sizeof(zero))
	if size == 0 || size > 0x10000 {
		panic(fmt.Sprintf("xcp: calseg %s page size is 0 or exceeds 64k", name))
	}

	x.calSegs.mu.Lock()
	if _, ok := x.calSegs.indexOfLocked(name); ok {
		x.calSegs.mu.Unlock()
		panic(fmt.Sprintf("xcp: calibration segment %s already exists", name))
	}
	index := len(x.calSegs.segs)
	seg := calseg.New[T](x, index, name, initPage, defaultPage)
	x.calSegs.segs = append(x.calSegs.segs, calSegDescriptor{handle: seg, size: size})
	x.calSegs.mu.Unlock()

	log.Debug("create calseg %s index=%d size=%d", name, index, size)
	return seg
}
