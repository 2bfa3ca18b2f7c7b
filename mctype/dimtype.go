package mctype

import (
	"fmt"

	"github.com/rob-gra/xcp-lite/mcid"
)

// DimType is a ValueType plus optional dimensions (scalar, array [xDim] or
// matrix [xDim][yDim]) and optional SupportData describing its calibration
// or measurement role.
type DimType struct {
	ValueType ValueType
	xDim      uint16 // 0 means "not set" (scalar), matching the Option<u16> None case
	yDim      uint16
	Support   *SupportData
}

// New builds a DimType with no meta data; dims of 0 or 1 collapse to scalar.
func New(valueType ValueType, xDim, yDim uint16) DimType {
	d := DimType{ValueType: valueType}
	if xDim > 1 {
		d.xDim = xDim
	}
	if yDim > 1 {
		d.yDim = yDim
	}
	return d
}

// NewInstance builds a DimType referencing a typedef instance with the given
// object role.
func NewInstance(typeName mcid.Identifier, objectType ObjectType) DimType {
	sd := NewSupportData(objectType)
	return DimType{ValueType: NewTypeDef(typeName), Support: &sd}
}

// NewWithMetadata builds a dimensioned DimType carrying explicit SupportData.
func NewWithMetadata(valueType ValueType, xDim, yDim uint16, support SupportData) DimType {
	d := New(valueType, xDim, yDim)
	d.Support = &support
	return d
}

// NewScalar builds a scalar DimType with no meta data.
func NewScalar(valueType ValueType) DimType { return DimType{ValueType: valueType} }

// NewScalarObject builds a scalar DimType with a defined object role.
func NewScalarObject(valueType ValueType, objectType ObjectType) DimType {
	sd := NewSupportData(objectType)
	return DimType{ValueType: valueType, Support: &sd}
}

// NewArray builds a 1-dimensional array DimType with no meta data.
func NewArray(valueType ValueType, xDim uint16) DimType {
	if xDim <= 1 {
		return NewScalar(valueType)
	}
	return DimType{ValueType: valueType, xDim: xDim}
}

// NewArrayObject builds a 1-dimensional array DimType with a defined role.
func NewArrayObject(valueType ValueType, xDim uint16, objectType ObjectType) DimType {
	if xDim <= 1 {
		return NewScalar(valueType)
	}
	sd := NewSupportData(objectType)
	return DimType{ValueType: valueType, xDim: xDim, Support: &sd}
}

// NewMatrix builds a 2-dimensional matrix DimType with no meta data.
func NewMatrix(valueType ValueType, xDim, yDim uint16) DimType {
	if yDim <= 1 {
		return NewArray(valueType, xDim)
	}
	if xDim <= 1 {
		return NewScalar(valueType)
	}
	return DimType{ValueType: valueType, xDim: xDim, yDim: yDim}
}

// NewMatrixObject builds a 2-dimensional matrix DimType with a defined role.
func NewMatrixObject(valueType ValueType, xDim, yDim uint16, objectType ObjectType) DimType {
	if yDim <= 1 {
		return NewArrayObject(valueType, xDim, objectType)
	}
	if xDim <= 1 {
		return NewScalarObject(valueType, objectType)
	}
	sd := NewSupportData(objectType)
	return DimType{ValueType: valueType, xDim: xDim, yDim: yDim, Support: &sd}
}

// IsBasicType reports whether the value is neither a Blob nor a TypeDef.
func (d DimType) IsBasicType() bool {
	return d.ValueType.kind != BlobKind && d.ValueType.kind != TypeDefKind
}

// IsBlob reports whether the value type is Blob.
func (d DimType) IsBlob() bool { return d.ValueType.kind == BlobKind }

// IsTypeDef reports whether the value type references a typedef.
func (d DimType) IsTypeDef() bool { return d.ValueType.kind == TypeDefKind }

// ObjectType returns the calibration/measurement role, Unspecified if there
// is no SupportData. Panics if SupportData is present but carries
// Unspecified (an internal invariant violation).
func (d DimType) ObjectType() ObjectType {
	if d.Support == nil {
		return Unspecified
	}
	if d.Support.ObjectType == Unspecified {
		panic("mctype: DimType.ObjectType: support data must not carry Unspecified")
	}
	return d.Support.ObjectType
}

// IsAxis reports whether this is an adjustable shared axis.
func (d DimType) IsAxis() bool { return d.Support != nil && d.Support.ObjectType.IsAxis() }

// IsCharacteristic reports whether this is a characteristic.
func (d DimType) IsCharacteristic() bool {
	return d.Support != nil && d.Support.ObjectType.IsCharacteristic()
}

// IsCalibrationObject reports whether a tool, not the target, writes this.
func (d DimType) IsCalibrationObject() bool {
	return d.Support != nil && d.Support.ObjectType.IsCalibrationObject()
}

// IsMeasurementObject reports whether the target writes this continuously
// or sporadically.
func (d DimType) IsMeasurementObject() bool {
	return d.Support != nil && d.Support.ObjectType.IsMeasurementObject()
}

// XAxisRef returns the x-axis AXIS_PTS reference, if any.
func (d DimType) XAxisRef() *mcid.Identifier {
	if d.Support == nil {
		return nil
	}
	return d.Support.XAxisRef
}

// YAxisRef returns the y-axis AXIS_PTS reference, if any.
func (d DimType) YAxisRef() *mcid.Identifier {
	if d.Support == nil {
		return nil
	}
	return d.Support.YAxisRef
}

// XAxisConv returns the x-axis fixed-axis conversion name, if any.
func (d DimType) XAxisConv() *mcid.Identifier {
	if d.Support == nil {
		return nil
	}
	return d.Support.XAxisConv
}

// YAxisConv returns the y-axis fixed-axis conversion name, if any.
func (d DimType) YAxisConv() *mcid.Identifier {
	if d.Support == nil {
		return nil
	}
	return d.Support.YAxisConv
}

// Comment returns the description text, "" if there is none.
func (d DimType) Comment() string {
	if d.Support == nil {
		return ""
	}
	return d.Support.Comment.String()
}

// Min returns the minimum value in physical units: SupportData's override if
// set, else the converted scalar minimum, else the raw scalar minimum.
func (d DimType) Min() (float64, bool) {
	if d.Support != nil {
		if d.Support.Min != nil {
			return *d.Support.Min, true
		}
		if min, ok := d.ValueType.Min(); ok {
			return d.Support.Convert(min), true
		}
	}
	return d.ValueType.Min()
}

// Max returns the maximum value in physical units, mirroring Min.
func (d DimType) Max() (float64, bool) {
	if d.Support != nil {
		if d.Support.Max != nil {
			return *d.Support.Max, true
		}
		if max, ok := d.ValueType.Max(); ok {
			return d.Support.Convert(max), true
		}
	}
	return d.ValueType.Max()
}

// Factor returns the physical conversion factor, nil if identity (1.0).
func (d DimType) Factor() *float64 {
	if d.Support != nil && d.Support.Factor != nil && *d.Support.Factor != 1.0 {
		f := *d.Support.Factor
		return &f
	}
	return nil
}

// Offset returns the physical conversion offset, nil if identity (0.0).
func (d DimType) Offset() *float64 {
	if d.Support != nil && d.Support.Offset != nil && *d.Support.Offset != 0.0 {
		o := *d.Support.Offset
		return &o
	}
	return nil
}

// Unit returns the physical unit text, "" if there is none.
func (d DimType) Unit() string {
	if d.Support == nil {
		return ""
	}
	return d.Support.Unit.String()
}

// Step returns the calibration step size, if any.
func (d DimType) Step() *float64 {
	if d.Support == nil {
		return nil
	}
	return d.Support.Step
}

// IsScalar reports whether the type has no array dimension.
func (d DimType) IsScalar() bool {
	x, y := d.Dim()[0], d.Dim()[1]
	return x <= 1 && y <= 1
}

// IsArray reports whether the type has exactly one array dimension.
func (d DimType) IsArray() bool {
	x, y := d.Dim()[0], d.Dim()[1]
	return x > 1 && y <= 1
}

// IsMatrix reports whether the type has two array dimensions.
func (d DimType) IsMatrix() bool {
	x, y := d.Dim()[0], d.Dim()[1]
	return x > 1 && y > 1
}

// Dim returns [xDim, yDim], each defaulting to 1 when unset.
func (d DimType) Dim() [2]uint16 {
	x, y := d.xDim, d.yDim
	if x == 0 {
		x = 1
	}
	if y == 0 {
		y = 1
	}
	return [2]uint16{x, y}
}

// Size returns the in-memory size in bytes: element size times both
// dimensions.
func (d DimType) Size() int {
	dim := d.Dim()
	return d.ValueType.Size() * int(dim[0]) * int(dim[1])
}

func (d DimType) String() string {
	return fmt.Sprintf("DimType{%s, dim=%v}", d.ValueType, d.Dim())
}
