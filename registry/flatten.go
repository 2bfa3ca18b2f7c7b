package registry

import (
	"fmt"

	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
)

// Flatten collapses every typedef-valued instance into one flattened
// instance per leaf field, with dotted mangled names ("instance.field" or
// "instance.field.subfield" for nested typedefs), and clears the typedef
// list. A2L consumers that can't follow TYPEDEF_STRUCTURE get plain
// MEASUREMENT/CHARACTERISTIC/AXIS_PTS records instead.
func (r *Registry) Flatten() {
	log.Debug("flattening typedef structure into mangled instance names")

	byName := make(map[mcid.Identifier]*TypeDef, r.TypeDefs.Len())
	for _, t := range r.TypeDefs.All() {
		byName[t.Name] = t
	}

	flat := NewInstanceList(&r.frozen)
	for _, inst := range r.Instances.All() {
		typeName, isTypeDef := inst.TypeDefName()
		if !isTypeDef {
			_ = flat.Add(inst.Name, inst.DimType, inst.Address)
			continue
		}
		if inst.DimType.Dim()[0] > 1 {
			log.Error("instance %s: multi-dimensional field of type %s cannot be flattened", inst.Name, typeName)
			panic("registry: multi-dimensional typedef fields are not supported")
		}
		t, ok := byName[typeName]
		if !ok {
			log.Error("typedef %s not found in typedef list", typeName)
			continue
		}
		collectFlattenedInstances(flat, byName, inst.Name.String(), inst.Address, 0, t)
	}

	r.Instances = flat
	r.TypeDefs.Clear()
}

func collectFlattenedInstances(
	out *InstanceList,
	byName map[mcid.Identifier]*TypeDef,
	name string,
	rootAddress mcaddr.Address,
	rootOffset int32,
	t *TypeDef,
) {
	for _, field := range t.Fields {
		mangled := mcid.NewIdentifier(fmt.Sprintf("%s.%s", name, field.Name))
		if typeName, isTypeDef := field.TypeDefName(); isTypeDef {
			nested, ok := byName[typeName]
			if !ok {
				continue
			}
			collectFlattenedInstances(out, byName, mangled.String(), rootAddress, rootOffset+int32(field.Offset), nested)
			continue
		}
		addr := rootAddress
		addr.AddAddrOffset(rootOffset + int32(field.Offset))
		_ = out.Add(mangled, field.DimType, addr)
	}
}
