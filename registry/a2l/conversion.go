package a2l

import (
	"fmt"

	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/mctype"
)

// writeConversion emits a COMPU_METHOD for dimType if it carries a
// non-identity linear conversion, and returns the conversion's name for use
// in the enclosing MEASUREMENT/CHARACTERISTIC record. Bool always reuses the
// predefined BOOL conversion; identity conversions reuse NO_COMPU_METHOD
// (float) or IDENTITY (integer). instanceIndex > 1 skips re-emitting a
// conversion already written for the first of several typedef-layout
// instances sharing one name.
func (a *Writer) writeConversion(name string, instanceIndex uint16, dimType mctype.DimType) string {
	factor := 1.0
	if f := dimType.Factor(); f != nil {
		factor = *f
	}
	offset := 0.0
	if o := dimType.Offset(); o != nil {
		offset = *o
	}
	unit := dimType.Unit()

	if dimType.ValueType.Equal(mctype.VBool) {
		return "BOOL"
	}

	const eps = 2.220446049250313e-16 // f64::EPSILON
	if absF(factor-1.0) > eps || absF(offset) > eps {
		if instanceIndex > 1 {
			return name
		}
		layout := 0
		if dimType.ValueType.Equal(mctype.VFloat32Ieee) || dimType.ValueType.Equal(mctype.VFloat64Ieee) || factor < 0.001 {
			layout = 6
		} else if factor < 1.0 {
			layout = 3
		}
		a.printf("/begin COMPU_METHOD %s \"\" LINEAR \"%%.%df\" \"%s\" COEFFS_LINEAR %v %v /end COMPU_METHOD\n", name, layout, unit, factor, offset)
		return name
	}

	if dimType.ValueType.Equal(mctype.VFloat32Ieee) || dimType.ValueType.Equal(mctype.VFloat64Ieee) {
		return "NO_COMPU_METHOD"
	}
	return "IDENTITY"
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// writeDimensions emits MATRIX_DIM for a multi-dimensional scalar value.
func (a *Writer) writeDimensions(dimType mctype.DimType) {
	dim := dimType.Dim()
	if dim[0] > 1 && dim[1] > 1 {
		a.printf(" MATRIX_DIM %d %d", dim[0], dim[1])
	} else if dim[0] > 1 {
		a.printf(" MATRIX_DIM %d", dim[0])
	}
}

// writeAxisDescr emits AXIS_DESCR blocks for a MAP (two axes) or CURVE (one
// axis), choosing FIX_AXIS, a fixed-axis conversion, or a shared AXIS_PTS
// reference (COM_AXIS) per axis.
func (a *Writer) writeAxisDescr(dimType mctype.DimType) {
	dim := dimType.Dim()
	xDim, yDim := dim[0], dim[1]
	if xDim <= 1 && yDim <= 1 {
		return
	}
	a.writeOneAxisDescr(xDim, dimType.XAxisConv(), dimType.XAxisRef())
	if xDim > 1 && yDim > 1 {
		a.writeOneAxisDescr(yDim, dimType.YAxisConv(), dimType.YAxisRef())
	}
}

func (a *Writer) writeOneAxisDescr(dim uint16, conv, ref *mcid.Identifier) {
	switch {
	case conv != nil:
		a.printf(" /begin AXIS_DESCR FIX_AXIS NO_INPUT_QUANTITY %s %d 0 %d FIX_AXIS_PAR_DIST 0 1 %d /end AXIS_DESCR", conv, dim, dim-1, dim)
	case ref != nil:
		a.printf(" /begin AXIS_DESCR COM_AXIS NO_INPUT_QUANTITY NO_COMPU_METHOD %d 0.0 0.0 AXIS_PTS_REF %s /end AXIS_DESCR", dim, ref)
	default:
		a.printf(" /begin AXIS_DESCR FIX_AXIS NO_INPUT_QUANTITY NO_COMPU_METHOD %d 0 %d FIX_AXIS_PAR_DIST 0 1 %d /end AXIS_DESCR", dim, dim-1, dim)
	}
}

func (a *Writer) writeIfDataEvent(eventID uint16) {
	a.printf(" /begin IF_DATA XCP /begin DAQ_EVENT FIXED_EVENT_LIST EVENT %d /end DAQ_EVENT /end IF_DATA", eventID)
}

// characteristicSubtype decides VAL_BLK / MAP / CURVE / VALUE / AXIS_PTS for
// a calibration object, mirroring get_characteristic_subtype_str.
func characteristicSubtype(dimType mctype.DimType) string {
	if dimType.Support == nil {
		panic("a2l: characteristicSubtype: no support data")
	}
	switch dimType.Support.ObjectType {
	case mctype.Axis:
		return "AXIS_PTS"
	case mctype.Characteristic:
		dim := dimType.Dim()
		noAxis := dimType.XAxisRef() == nil && dimType.YAxisRef() == nil && dimType.XAxisConv() == nil && dimType.YAxisConv() == nil
		switch {
		case dim[0] > 1 && noAxis:
			return "VAL_BLK"
		case dim[0] > 1 && dim[1] > 1:
			return "MAP"
		case dim[0] > 1 || dim[1] > 1:
			return "CURVE"
		default:
			return "VALUE"
		}
	default:
		panic(fmt.Sprintf("a2l: characteristicSubtype: unsupported object type %v", dimType.Support.ObjectType))
	}
}
