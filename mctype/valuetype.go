// Package mctype describes the basic value types, dimensioned types and
// object-kind support data the registry and the A2L writer project into
// MEASUREMENT, CHARACTERISTIC and AXIS_PTS records.
package mctype

import (
	"fmt"
	"math"
	"strings"

	"github.com/rob-gra/xcp-lite/mcid"
)

// ValueType is the basic scalar encoding of a calibration or measurement
// value. Blob carries its IDL text, TypeDef carries the referenced typedef
// name; every other variant is a plain scalar.
type ValueType struct {
	kind     valueKind
	blobIDL  mcid.Text
	typedef  mcid.Identifier
}

type valueKind uint8

const (
	Unknown valueKind = iota
	Bool
	Ubyte
	Uword
	Ulong
	Ulonglong
	Sbyte
	Sword
	Slong
	Slonglong
	Float32Ieee
	Float64Ieee
	BlobKind
	TypeDefKind
)

// Kind returns the underlying scalar/blob/typedef discriminator.
func (v ValueType) Kind() valueKind { return v.kind }

func scalar(k valueKind) ValueType { return ValueType{kind: k} }

var (
	VBool        = scalar(Bool)
	VUbyte       = scalar(Ubyte)
	VUword       = scalar(Uword)
	VUlong       = scalar(Ulong)
	VUlonglong   = scalar(Ulonglong)
	VSbyte       = scalar(Sbyte)
	VSword       = scalar(Sword)
	VSlong       = scalar(Slong)
	VSlonglong   = scalar(Slonglong)
	VFloat32Ieee = scalar(Float32Ieee)
	VFloat64Ieee = scalar(Float64Ieee)
)

// NewBlob builds a Blob value type carrying its IDL description text.
func NewBlob(idl string) ValueType {
	return ValueType{kind: BlobKind, blobIDL: mcid.NewText(idl)}
}

// NewTypeDef builds a value type referencing a typedef by name.
func NewTypeDef(name mcid.Identifier) ValueType {
	return ValueType{kind: TypeDefKind, typedef: name}
}

// BlobIDL returns the IDL text of a Blob value type.
func (v ValueType) BlobIDL() mcid.Text { return v.blobIDL }

// TypeDefName returns the referenced typedef name.
func (v ValueType) TypeDefName() mcid.Identifier { return v.typedef }

// Equal reports value-level equality, matching the Rust McValueType PartialEq.
func (v ValueType) Equal(o ValueType) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case BlobKind:
		return v.blobIDL == o.blobIDL
	case TypeDefKind:
		return v.typedef == o.typedef
	default:
		return true
	}
}

// Min returns the representable minimum in physical units, or false if the
// type has none (Bool, Blob, TypeDef, Unknown). Bool has no Min arm although
// Max reports 1.0 for it.
func (v ValueType) Min() (float64, bool) {
	switch v.kind {
	case Ubyte, Uword, Ulong, Ulonglong:
		return 0.0, true
	case Sbyte:
		return -128.0, true
	case Sword:
		return -32768.0, true
	case Slong:
		return -2147483648.0, true
	case Slonglong:
		return math.MinInt64, true
	case Float32Ieee, Float64Ieee:
		return -1e32, true
	default:
		return 0, false
	}
}

// Max returns the representable maximum in physical units, or false if the
// type has none.
func (v ValueType) Max() (float64, bool) {
	switch v.kind {
	case Bool:
		return 1.0, true
	case Ubyte:
		return 255.0, true
	case Uword:
		return 65535.0, true
	case Ulong:
		return 4294967295.0, true
	case Ulonglong:
		return math.MaxUint64, true // loses precision converting to f64, matches the original
	case Sbyte:
		return 127.0, true
	case Sword:
		return 32767.0, true
	case Slong:
		return 2147483647.0, true
	case Slonglong:
		return math.MaxInt64, true
	case Float32Ieee, Float64Ieee:
		return 1e32, true
	default:
		return 0, false
	}
}

// Size returns the in-memory size in bytes. It panics for Blob and TypeDef,
// whose size is not known without the registry (matching the original's
// get_size panics for those variants).
func (v ValueType) Size() int {
	switch v.kind {
	case Ubyte, Sbyte, Bool:
		return 1
	case Uword, Sword:
		return 2
	case Ulong, Slong, Float32Ieee:
		return 4
	case Ulonglong, Slonglong, Float64Ieee:
		return 8
	case BlobKind:
		panic("mctype: Size: blob has no fixed size")
	case TypeDefKind:
		panic("mctype: Size: typedef instance size is unknown here")
	default:
		panic("mctype: Size: unsupported value type")
	}
}

// TypeStr returns the A2L scalar type name used in MEASUREMENT/CHARACTERISTIC
// records (UBYTE, UWORD, FLOAT32_IEEE, ...).
func (v ValueType) TypeStr() string {
	switch v.kind {
	case Bool, Ubyte:
		return "UBYTE"
	case Uword:
		return "UWORD"
	case Ulong:
		return "ULONG"
	case Ulonglong:
		return "A_UINT64"
	case Sbyte:
		return "SBYTE"
	case Sword:
		return "SWORD"
	case Slong:
		return "SLONG"
	case Slonglong:
		return "A_INT64"
	case Float32Ieee:
		return "FLOAT32_IEEE"
	case Float64Ieee:
		return "FLOAT64_IEEE"
	case BlobKind:
		return "BLOB"
	default:
		panic("mctype: TypeStr: instance/unknown not allowed as measurement type")
	}
}

// RecordLayoutStr returns the name of the predefined RECORD_LAYOUT for this
// scalar type (U8, I16, F32, ... and the asymmetric BOOL for Bool).
func (v ValueType) RecordLayoutStr() string {
	switch v.kind {
	case Bool:
		return "BOOL"
	case Ubyte:
		return "U8"
	case Uword:
		return "U16"
	case Ulong:
		return "U32"
	case Ulonglong:
		return "U64"
	case Sbyte:
		return "I8"
	case Sword:
		return "I16"
	case Slong:
		return "I32"
	case Slonglong:
		return "I64"
	case Float32Ieee:
		return "F32"
	case Float64Ieee:
		return "F64"
	case BlobKind:
		return "BLOB"
	default:
		panic("mctype: RecordLayoutStr: instance/unknown not allowed as record layout")
	}
}

// FromGoBasicType maps a Go builtin type name (bool, uint8, int32, float64,
// ...) to its ValueType, or Unknown if it isn't a recognized basic type.
func FromGoBasicType(s string) ValueType {
	switch s {
	case "bool":
		return VBool
	case "uint8", "byte":
		return VUbyte
	case "int8":
		return VSbyte
	case "uint16":
		return VUword
	case "int16":
		return VSword
	case "uint32":
		return VUlong
	case "int32":
		return VSlong
	case "uint64", "uint", "uintptr":
		return VUlonglong
	case "int64", "int":
		return VSlonglong
	case "float32":
		return VFloat32Ieee
	case "float64":
		return VFloat64Ieee
	default:
		return scalar(Unknown)
	}
}

// FromGoType maps a reflect-style Go type name, possibly an array type
// spelled "[x]Elem" or "[y][x]Elem", to a ValueType. Non-basic element types
// fall back to a TypeDef reference, mirroring McValueType::from_rust_type's
// bracket/semicolon-free bracket parsing adapted to Go array syntax.
func FromGoType(s string) ValueType {
	if t := FromGoBasicType(s); t.kind != Unknown {
		return t
	}
	inner := strings.TrimLeft(s, "[]0123456789")
	if t := FromGoBasicType(inner); t.kind != Unknown {
		return t
	}
	return NewTypeDef(mcid.NewIdentifier(inner))
}

func (v ValueType) String() string {
	switch v.kind {
	case BlobKind:
		return fmt.Sprintf("Blob(%s)", v.blobIDL)
	case TypeDefKind:
		return fmt.Sprintf("TypeDef(%s)", v.typedef)
	default:
		return v.TypeStr()
	}
}
