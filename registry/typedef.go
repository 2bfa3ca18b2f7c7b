package registry

import (
	"sort"

	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/mctype"
)

// TypeDefField is one member of a struct typedef: its name, type/meta data
// and byte offset within the struct.
type TypeDefField struct {
	Name    mcid.Identifier
	DimType mctype.DimType
	Offset  uint16
}

// TypeDefName returns the referenced typedef name, if this field's value
// type is itself a TypeDef reference (nested struct).
func (f TypeDefField) TypeDefName() (mcid.Identifier, bool) {
	if f.DimType.ValueType.Kind() != mctype.TypeDefKind {
		return "", false
	}
	return f.DimType.ValueType.TypeDefName(), true
}

// TypeDef is a struct type definition referenced by Instance.DimType's
// TypeDef value type. Its field offsets are relative to the struct's own
// base, and an instance's final address is the field offset added to the
// instance's own address.
type TypeDef struct {
	Name   mcid.Identifier
	Fields []TypeDefField
	Size   int
}

// NewTypeDef constructs an empty typedef of the given byte size.
func NewTypeDef(name mcid.Identifier, size int) *TypeDef {
	return &TypeDef{Name: name, Fields: make([]TypeDefField, 0, 8), Size: size}
}

// FindField looks up a field by name.
func (t *TypeDef) FindField(name mcid.Identifier) (TypeDefField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return TypeDefField{}, false
}

// AddField appends a field, rejecting a duplicate field name.
func (t *TypeDef) AddField(name mcid.Identifier, dimType mctype.DimType, offset uint16) error {
	if _, ok := t.FindField(name); ok {
		return errDuplicate(name.String())
	}
	t.Fields = append(t.Fields, TypeDefField{Name: name, DimType: dimType, Offset: offset})
	return nil
}

// TypeDefList is the registry's ordered collection of typedefs.
type TypeDefList struct {
	defs []*TypeDef
}

// NewTypeDefList creates an empty TypeDefList.
func NewTypeDefList() *TypeDefList { return &TypeDefList{defs: make([]*TypeDef, 0, 16)} }

// Len returns the number of registered typedefs.
func (l *TypeDefList) Len() int { return len(l.defs) }

// All returns the typedefs in registration order.
func (l *TypeDefList) All() []*TypeDef { return l.defs }

// Clear removes every typedef, used after flattening.
func (l *TypeDefList) Clear() { l.defs = l.defs[:0] }

// Push appends a typedef.
func (l *TypeDefList) Push(t *TypeDef) { l.defs = append(l.defs, t) }

// Find looks up a typedef by name.
func (l *TypeDefList) Find(name mcid.Identifier) (*TypeDef, bool) {
	for _, t := range l.defs {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// SortByName sorts typedefs by name, used before A2L emission.
func (l *TypeDefList) SortByName() {
	sort.SliceStable(l.defs, func(i, j int) bool { return l.defs[i].Name.Less(l.defs[j].Name) })
}
