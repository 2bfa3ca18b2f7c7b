package registry

import (
	"testing"

	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/mctype"
)

func TestCalSegAddAssignsCanonicalBaseAddress(t *testing.T) {
	r := New()
	if err := r.CalSegs.Add(mcid.NewIdentifier("calseg"), 0, 0x1000); err != nil {
		t.Fatalf("Add: %v", err)
	}
	seg, ok := r.CalSegs.Find(mcid.NewIdentifier("calseg"))
	if !ok {
		t.Fatal("expected segment to be found")
	}
	if seg.Addr != 0x80010000 {
		t.Fatalf("Addr = 0x%X, want 0x80010000", seg.Addr)
	}
}

func TestCalSegAddRejectsDuplicateIndex(t *testing.T) {
	r := New()
	_ = r.CalSegs.Add(mcid.NewIdentifier("a"), 0, 16)
	if err := r.CalSegs.Add(mcid.NewIdentifier("b"), 0, 16); err == nil {
		t.Fatal("expected duplicate index error")
	}
}

func TestEventAddRejectsDuplicateNameIndexAndID(t *testing.T) {
	var frozen uint32
	l := NewEventList(&frozen)
	if err := l.Add(Event{Name: mcid.NewIdentifier("task"), Index: 0, ID: 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := l.Add(Event{Name: mcid.NewIdentifier("task"), Index: 0, ID: 2}); err == nil {
		t.Fatal("expected duplicate (name,index) error")
	}
	if err := l.Add(Event{Name: mcid.NewIdentifier("other"), Index: 0, ID: 1}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestInstanceAddPanicsOnUnspecifiedObjectType(t *testing.T) {
	var frozen uint32
	l := NewInstanceList(&frozen)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unspecified object type")
		}
	}()
	_ = l.Add(mcid.NewIdentifier("x"), mctype.NewScalar(mctype.VUword), mcaddr.NewEventRel(1, 0))
}

func TestFlattenMangledNamesAndClearsTypeDefs(t *testing.T) {
	r := New()
	td, err := r.AddTypeDef(mcid.NewIdentifier("Point"), 8)
	if err != nil {
		t.Fatalf("AddTypeDef: %v", err)
	}
	_ = td.AddField(mcid.NewIdentifier("x"), mctype.NewScalarObject(mctype.VFloat32Ieee, mctype.Measurement), 0)
	_ = td.AddField(mcid.NewIdentifier("y"), mctype.NewScalarObject(mctype.VFloat32Ieee, mctype.Measurement), 4)

	addr := mcaddr.NewEventRel(1, 100)
	if err := r.Instances.Add(mcid.NewIdentifier("pos"), mctype.NewInstance(mcid.NewIdentifier("Point"), mctype.Measurement), addr); err != nil {
		t.Fatalf("Add instance: %v", err)
	}

	r.Flatten()

	if r.TypeDefs.Len() != 0 {
		t.Fatalf("expected typedefs cleared, got %d", r.TypeDefs.Len())
	}
	if r.Instances.Len() != 2 {
		t.Fatalf("expected 2 flattened instances, got %d", r.Instances.Len())
	}
	names := map[string]bool{}
	for _, i := range r.Instances.All() {
		names[i.Name.String()] = true
	}
	if !names["pos.x"] || !names["pos.y"] {
		t.Fatalf("expected mangled names pos.x and pos.y, got %v", names)
	}
}

func TestFreezeIsOneWayAndIdempotent(t *testing.T) {
	r := New()
	r.Freeze()
	if !r.IsFrozen() {
		t.Fatal("expected frozen")
	}
	r.Freeze() // must not panic on a second call
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic mutating a frozen registry")
		}
	}()
	_, _ = r.AddTypeDef(mcid.NewIdentifier("Late"), 4)
}

func TestFrozenRegistryRejectsListAddsWithoutMutating(t *testing.T) {
	r := New()
	if err := r.CalSegs.Add(mcid.NewIdentifier("seg"), 0, 16); err != nil {
		t.Fatalf("Add calseg: %v", err)
	}
	if err := r.Events.Add(Event{Name: mcid.NewIdentifier("evt"), ID: 1}); err != nil {
		t.Fatalf("Add event: %v", err)
	}
	if err := r.Instances.Add(mcid.NewIdentifier("x"), mctype.NewScalarObject(mctype.VUword, mctype.Measurement), mcaddr.NewEventRel(1, 0)); err != nil {
		t.Fatalf("Add instance: %v", err)
	}
	r.Freeze()

	wantClosed := func(t *testing.T, err error) {
		t.Helper()
		if err == nil {
			t.Fatal("expected error on frozen registry")
		}
		if rerr, ok := err.(*Error); !ok || rerr.Kind != "closed" {
			t.Fatalf("err = %v, want *Error{Kind: \"closed\"}", err)
		}
	}

	wantClosed(t, r.CalSegs.Add(mcid.NewIdentifier("seg2"), 1, 16))
	wantClosed(t, r.Events.Add(Event{Name: mcid.NewIdentifier("evt2"), ID: 2}))
	wantClosed(t, r.Instances.Add(mcid.NewIdentifier("y"), mctype.NewScalarObject(mctype.VUword, mctype.Measurement), mcaddr.NewEventRel(1, 4)))

	if r.CalSegs.Len() != 1 {
		t.Fatalf("CalSegs.Len() = %d, want 1 (frozen Add must not mutate)", r.CalSegs.Len())
	}
	if r.Events.Len() != 1 {
		t.Fatalf("Events.Len() = %d, want 1 (frozen Add must not mutate)", r.Events.Len())
	}
	if r.Instances.Len() != 1 {
		t.Fatalf("Instances.Len() = %d, want 1 (frozen Add must not mutate)", r.Instances.Len())
	}
}
