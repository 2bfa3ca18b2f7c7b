package mctype

import (
	"fmt"

	"github.com/rob-gra/xcp-lite/mcid"
)

// ObjectType classifies the calibration/measurement role of an instance.
// Unspecified is the zero value, matching the Rust default.
type ObjectType uint8

const (
	Unspecified ObjectType = iota
	Measurement
	Characteristic
	Axis
)

// IsAxis reports whether this object type is an adjustable shared axis.
func (o ObjectType) IsAxis() bool { return o == Axis }

// IsCharacteristic reports whether this is a plain characteristic.
func (o ObjectType) IsCharacteristic() bool { return o == Characteristic }

// IsCalibrationObject reports whether the tool, not the target, owns writes.
// Unspecified counts as a calibration object too - an open item carried
// verbatim from the original ("@@@@ TODO" in mc_support.rs), never resolved
// upstream, so it is kept rather than silently tightened here.
func (o ObjectType) IsCalibrationObject() bool {
	return o == Characteristic || o == Axis || o == Unspecified
}

// IsMeasurementObject reports whether the target writes this continuously or
// sporadically.
func (o ObjectType) IsMeasurementObject() bool { return o == Measurement }

func (o ObjectType) String() string {
	switch o {
	case Measurement:
		return "Measurement"
	case Characteristic:
		return "Characteristic"
	case Axis:
		return "Axis"
	default:
		return "Unspecified"
	}
}

// ObjectQualifier are orthogonal access-qualifier bit flags.
type ObjectQualifier uint8

const (
	QualifierUnspecified  ObjectQualifier = 0
	QualifierVolatile     ObjectQualifier = 1
	QualifierReadOnly     ObjectQualifier = 2
	QualifierNoAsyncAccess ObjectQualifier = 4
)

func (q ObjectQualifier) IsVolatile() bool    { return q&QualifierVolatile != 0 }
func (q ObjectQualifier) IsUnspecified() bool { return q == QualifierUnspecified }

// SupportData is the optional meta data attached to a DimType describing its
// calibration/measurement role: object kind, qualifier, linear conversion
// (factor/offset), physical unit, comment, min/max/step override and axis
// references/conversions for MAP and CURVE objects.
type SupportData struct {
	ObjectType ObjectType
	Qualifier  ObjectQualifier
	Factor     *float64
	Offset     *float64
	Unit       mcid.Text
	Comment    mcid.Text
	Min        *float64
	Max        *float64
	Step       *float64
	XAxisRef   *mcid.Identifier
	YAxisRef   *mcid.Identifier
	XAxisConv  *mcid.Identifier
	YAxisConv  *mcid.Identifier
}

// NewSupportData creates SupportData with an explicit, non-Unspecified
// object type. It panics on Unspecified, matching the builder's assertion.
func NewSupportData(objectType ObjectType) SupportData {
	if objectType == Unspecified {
		panic("mctype: NewSupportData: object type must not be Unspecified")
	}
	return SupportData{ObjectType: objectType}
}

// SetComment is a builder-style setter returning the receiver by value.
func (s SupportData) SetComment(comment string) SupportData {
	s.Comment = mcid.NewText(comment)
	return s
}

// SetQualifier is a builder-style setter.
func (s SupportData) SetQualifier(q ObjectQualifier) SupportData {
	s.Qualifier = q
	return s
}

// SetLinear sets the physical conversion factor/offset/unit, omitting factor
// when it is 1.0 and offset when it is 0.0 (identity conversion needs none).
func (s SupportData) SetLinear(factor, offset float64, unit string) SupportData {
	s.Unit = mcid.NewText(unit)
	if factor != 1.0 {
		f := factor
		s.Factor = &f
	} else {
		s.Factor = nil
	}
	if offset != 0.0 {
		o := offset
		s.Offset = &o
	} else {
		s.Offset = nil
	}
	return s
}

// Convert applies physical_value = value * factor + offset.
func (s SupportData) Convert(value float64) float64 {
	result := value
	if s.Factor != nil {
		result *= *s.Factor
	}
	if s.Offset != nil {
		result += *s.Offset
	}
	return result
}

func (s SupportData) String() string {
	return fmt.Sprintf("SupportData{objectType=%s, unit=%q}", s.ObjectType, s.Unit)
}
