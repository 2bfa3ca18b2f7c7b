package calseg

import (
	"unsafe"
)

// copyFieldBytes copies length bytes at offset within *data to/from buf,
// depending on toData. The calibration tool addresses pages as flat byte
// ranges (XCP UPLOAD/DOWNLOAD carry no field names), so the data struct's
// memory layout has to be addressed directly - the same reason the
// original reaches for raw pointer arithmetic here instead of reflection.
// It reports false if the offset/length pair falls outside the struct.
func copyFieldBytes[T any](data *T, offset uint16, length uint8, buf []byte, toData bool) bool {
	size := unsafe.Sizeof(*data)
	if uint64(offset)+uint64(length) > uint64(size) {
		return false
	}
	base := unsafe.Slice((*byte)(unsafe.Pointer(data)), size)
	field := base[offset : uint32(offset)+uint32(length)]
	if toData {
		copy(field, buf)
	} else {
		copy(buf, field)
	}
	return true
}
