package a2l

import (
	"github.com/rob-gra/xcp-lite/mctype"
	"github.com/rob-gra/xcp-lite/registry"
)

// writeTypeDef emits a TYPEDEF_STRUCTURE with one STRUCTURE_COMPONENT per
// field, first emitting each basic-typed leaf field's own
// TYPEDEF_MEASUREMENT/TYPEDEF_CHARACTERISTIC/TYPEDEF_AXIS (deduplicated by
// name, since several instances can share one typedef). Fields that reference
// another typedef are not descended into here.
func (a *Writer) writeTypeDef(t *registry.TypeDef) {
	for _, field := range t.Fields {
		if _, isNested := field.TypeDefName(); isNested {
			continue // the nested typedef is written from its own TypeDefList entry
		}
		a.writeTypeDefLeaf(field)
	}

	if a.checkDuplicate(t.Name.String()) {
		return
	}
	a.printf("/begin TYPEDEF_STRUCTURE %s \"\" %d\n", t.Name, t.Size)
	for _, field := range t.Fields {
		a.printf("  /begin STRUCTURE_COMPONENT %s %s 0x%X /end STRUCTURE_COMPONENT\n",
			field.Name, componentTypeName(field), field.Offset)
	}
	a.printf("/end TYPEDEF_STRUCTURE\n")
}

func componentTypeName(field registry.TypeDefField) string {
	if typeDefName, ok := field.TypeDefName(); ok {
		return typeDefName.String()
	}
	return field.Name.String()
}

func (a *Writer) writeTypeDefLeaf(field registry.TypeDefField) {
	name := field.Name.String()
	if a.checkDuplicate("typedef_leaf:" + name) {
		return
	}
	dimType := field.DimType
	switch {
	case dimType.IsAxis():
		a.writeTypeDefAxis(name, dimType)
	case dimType.IsCharacteristic():
		a.writeTypeDefCharacteristic(name, dimType)
	default:
		a.writeTypeDefMeasurement(name, dimType)
	}
}

func (a *Writer) writeTypeDefMeasurement(name string, dimType mctype.DimType) {
	min, _ := dimType.Min()
	max, _ := dimType.Max()
	typeStr := dimType.ValueType.TypeStr()
	conv := a.writeConversion(name, 1, dimType)
	a.printf("/begin TYPEDEF_MEASUREMENT %s \"%s\" %s %s 0 0 %v %v", name, dimType.Comment(), typeStr, conv, min, max)
	a.writeDimensions(dimType)
	a.printf(" /end TYPEDEF_MEASUREMENT\n")
}

func (a *Writer) writeTypeDefCharacteristic(name string, dimType mctype.DimType) {
	min, _ := dimType.Min()
	max, _ := dimType.Max()
	subType := characteristicSubtype(dimType)
	layout := dimType.ValueType.RecordLayoutStr()
	conv := a.writeConversion(name, 1, dimType)
	a.printf("/begin TYPEDEF_CHARACTERISTIC %s \"%s\" %s %s 0 %s %v %v", name, dimType.Comment(), subType, layout, conv, min, max)
	switch subType {
	case "VAL_BLK":
		a.writeDimensions(dimType)
	case "MAP", "CURVE":
		a.writeAxisDescr(dimType)
	}
	a.printf(" /end TYPEDEF_CHARACTERISTIC\n")
}

func (a *Writer) writeTypeDefAxis(name string, dimType mctype.DimType) {
	min, _ := dimType.Min()
	max, _ := dimType.Max()
	layout := dimType.ValueType.RecordLayoutStr()
	conv := a.writeConversion(name, 0, dimType)
	a.printf("/begin TYPEDEF_AXIS %s \"%s\" NO_INPUT_QUANTITY A_%s 0 %s %d %v %v /end TYPEDEF_AXIS\n",
		name, dimType.Comment(), layout, conv, dimType.Dim()[0], min, max)
}
