package a2l

import (
	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mctype"
	"github.com/rob-gra/xcp-lite/registry"
)

// writeInstance dispatches an instance to its A2L record shape: BLOB,
// INSTANCE (of a typedef), AXIS_PTS, CHARACTERISTIC, or MEASUREMENT.
func (a *Writer) writeInstance(inst registry.Instance) {
	switch {
	case inst.DimType.IsBlob():
		a.writeBlob(inst)
	case inst.DimType.IsTypeDef():
		a.writeInstanceOfTypeDef(inst)
	case inst.DimType.IsAxis():
		a.writeAxis(inst)
	case inst.DimType.IsCalibrationObject():
		a.writeCharacteristic(inst)
	default:
		a.writeMeasurement(inst)
	}
}

func (a *Writer) addr(inst registry.Instance) (uint8, uint32) {
	return inst.Address.A2LAddr(a.reg)
}

func (a *Writer) writeBlob(inst registry.Instance) {
	name := inst.UniqueName(a.reg)
	ext, addr := a.addr(inst)
	a.printf("/begin BLOB %s \"%s\" 0x%X %d", name, inst.DimType.Comment(), addr, inst.DimType.ValueType.Size())
	if ext != 0 {
		a.printf(" ECU_ADDRESS_EXTENSION %d", ext)
	}
	a.printf(" ANNOTATION ANNOTATION_LABEL \"IDL\" ANNOTATION_TEXT \"%s\"", inst.DimType.ValueType.BlobIDL())
	a.printf(" /end BLOB\n")
}

func (a *Writer) writeInstanceOfTypeDef(inst registry.Instance) {
	name := inst.UniqueName(a.reg)
	ext, addr := a.addr(inst)
	typeName := inst.DimType.ValueType.TypeDefName()
	a.printf("/begin INSTANCE %s \"%s\" %s 0x%X", name, inst.DimType.Comment(), typeName, addr)
	if ext != 0 {
		a.printf(" ECU_ADDRESS_EXTENSION %d", ext)
	}
	a.printf(" /end INSTANCE\n")
}

func (a *Writer) writeAxis(inst registry.Instance) {
	name := inst.UniqueName(a.reg)
	ext, addr := a.addr(inst)
	dimType := inst.DimType
	layout := dimType.ValueType.RecordLayoutStr()
	min, _ := dimType.Min()
	max, _ := dimType.Max()
	conv := a.writeConversion(name, 0, dimType)
	a.printf("/begin AXIS_PTS %s \"%s\" 0x%X NO_INPUT_QUANTITY A_%s 0 %s %d", name, dimType.Comment(), addr, layout, conv, dimType.Dim()[0])
	a.printf(" %v %v", min, max)
	if step := dimType.Step(); step != nil {
		a.printf(" STEP_SIZE %v", *step)
	}
	if unit := dimType.Unit(); unit != "" {
		a.printf(" PHYS_UNIT \"%s\"", unit)
	}
	if ext != 0 {
		a.printf(" ECU_ADDRESS_EXTENSION %d", ext)
	}
	a.printf(" /end AXIS_PTS\n")
}

func (a *Writer) writeCharacteristic(inst registry.Instance) {
	name := inst.UniqueName(a.reg)
	ext, addr := a.addr(inst)
	dimType := inst.DimType
	unit := dimType.Unit()
	comment := dimType.Comment()

	if dimType.ValueType.Equal(mctype.VBool) {
		a.printf("/begin CHARACTERISTIC %s \"%s\" VALUE 0x%X BOOL 0 BOOL 0 1", name, comment, addr)
	} else {
		min, _ := dimType.Min()
		max, _ := dimType.Max()
		subType := characteristicSubtype(dimType)
		layout := dimType.ValueType.RecordLayoutStr()
		conv := a.writeConversion(name, 0, dimType)
		a.printf("/begin CHARACTERISTIC %s \"%s\" %s 0x%X %s 0 %s %v %v", name, comment, subType, addr, layout, conv, min, max)
		switch subType {
		case "VAL_BLK":
			a.writeDimensions(dimType)
		case "MAP", "CURVE":
			a.writeAxisDescr(dimType)
		}
	}
	if unit != "" {
		a.printf(" PHYS_UNIT \"%s\"", unit)
	}
	if step := dimType.Step(); step != nil {
		a.printf(" STEP_SIZE %v", *step)
	}
	if ext != 0 {
		a.printf(" ECU_ADDRESS_EXTENSION %d", ext)
	}
	a.printf(" /end CHARACTERISTIC\n")
}

func (a *Writer) writeMeasurement(inst registry.Instance) {
	name := inst.UniqueName(a.reg)
	ext, addr := a.addr(inst)
	dimType := inst.DimType
	min, _ := dimType.Min()
	max, _ := dimType.Max()
	unit := dimType.Unit()
	comment := dimType.Comment()
	typeStr := dimType.ValueType.TypeStr()
	conv := a.writeConversion(name, 1, dimType)
	dim := dimType.Dim()
	eventID, hasEvent := inst.Address.EventID()

	xFixAxis := dim[0] > 1 && dimType.XAxisConv() != nil
	yFixAxis := dim[1] > 1 && dimType.YAxisConv() != nil

	// A measurement with a fixed axis and multiple dimensions can't be a
	// MEASUREMENT record, so it's written as a READ_ONLY CHARACTERISTIC
	// MAP/CURVE with the event attached via IF_DATA instead.
	if xFixAxis || yFixAxis {
		layout := dimType.ValueType.RecordLayoutStr()
		subType := "CURVE"
		if xFixAxis && yFixAxis {
			subType = "MAP"
		}
		a.printf("/begin CHARACTERISTIC %s \"%s\" %s 0x%X %s 0 %s %v %v READ_ONLY", name, comment, subType, addr, layout, conv, min, max)
		if unit != "" {
			a.printf(" PHYS_UNIT \"%s\"", unit)
		}
		if step := dimType.Step(); step != nil {
			a.printf(" STEP_SIZE %v", *step)
		}
		a.writeAxisDescr(dimType)
		if ext != 0 {
			a.printf(" ECU_ADDRESS_EXTENSION %d", ext)
		}
		if hasEvent {
			a.writeIfDataEvent(eventID)
		}
		a.printf(" /end CHARACTERISTIC\n")
		return
	}

	a.printf("/begin MEASUREMENT %s \"%s\" %s %s 0 0 %v %v ECU_ADDRESS 0x%X", name, comment, typeStr, conv, min, max, addr)
	if ext != 0 {
		a.printf(" ECU_ADDRESS_EXTENSION %d", ext)
	}
	if ext == mcaddr.ExtDyn {
		a.printf(" READ_WRITE")
	}
	if unit != "" {
		a.printf(" PHYS_UNIT \"%s\"", unit)
	}
	if step := dimType.Step(); step != nil {
		a.printf(" STEP_SIZE %v", *step)
	}
	a.writeDimensions(dimType)
	if hasEvent {
		a.writeIfDataEvent(eventID)
	}
	a.printf(" /end MEASUREMENT\n")
}
