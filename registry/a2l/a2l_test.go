package a2l

import (
	"strings"
	"testing"

	"github.com/rob-gra/xcp-lite/mcaddr"
	"github.com/rob-gra/xcp-lite/mcid"
	"github.com/rob-gra/xcp-lite/mctype"
	"github.com/rob-gra/xcp-lite/registry"
)

func buildRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	r.SetAppInfo(mcid.NewIdentifier("demo"), "demo app", 1)
	r.SetAppVersion("1.0", 0x80000000)

	if err := r.Events.Add(registry.Event{Name: mcid.NewIdentifier("task"), ID: 1, TargetCycleTimeNs: 10_000_000}); err != nil {
		t.Fatalf("add event: %v", err)
	}
	if err := r.CalSegs.Add(mcid.NewIdentifier("params"), 0, 16); err != nil {
		t.Fatalf("add calseg: %v", err)
	}

	dimType := mctype.NewScalarObject(mctype.VFloat32Ieee, mctype.Measurement)
	if err := r.Instances.Add(mcid.NewIdentifier("speed"), dimType, mcaddr.NewEventRel(1, 0)); err != nil {
		t.Fatalf("add measurement instance: %v", err)
	}

	calDimType := mctype.NewScalarObject(mctype.VFloat32Ieee, mctype.Characteristic)
	if err := r.Instances.Add(mcid.NewIdentifier("gain"), calDimType, mcaddr.NewCalSegRel(mcid.NewIdentifier("params"), 0)); err != nil {
		t.Fatalf("add characteristic instance: %v", err)
	}

	r.Freeze()
	return r
}

func TestWriteProducesWellFormedSections(t *testing.T) {
	r := buildRegistry(t)
	var sb strings.Builder
	if err := Write(&sb, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"ASAP2_VERSION",
		"/begin MOD_COMMON",
		"/begin MOD_PAR",
		"/begin EVENT",
		"/begin MEMORY_SEGMENT params",
		"/begin MEASUREMENT speed",
		"/begin CHARACTERISTIC gain",
		"/begin GROUP Measurements",
		"/begin GROUP Characteristics",
		"/end MODULE",
		"/end PROJECT",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n---\n%s", want, out)
		}
	}
}

func TestWriteMeasurementReferencesItsEventGroup(t *testing.T) {
	r := buildRegistry(t)
	var sb strings.Builder
	if err := Write(&sb, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := sb.String()

	idx := strings.Index(out, "/begin GROUP task \"\" /begin REF_MEASUREMENT")
	if idx < 0 {
		t.Fatalf("expected a REF_MEASUREMENT group for event task, got:\n%s", out)
	}
	end := strings.Index(out[idx:], "/end REF_MEASUREMENT")
	if end < 0 || !strings.Contains(out[idx:idx+end], "speed") {
		t.Errorf("expected speed listed in task's REF_MEASUREMENT group")
	}
}

func TestWriteCharacteristicReferencesItsSegmentGroup(t *testing.T) {
	r := buildRegistry(t)
	var sb strings.Builder
	if err := Write(&sb, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := sb.String()

	idx := strings.Index(out, "/begin GROUP params \"\" /begin REF_CHARACTERISTIC")
	if idx < 0 {
		t.Fatalf("expected a REF_CHARACTERISTIC group for segment params, got:\n%s", out)
	}
	end := strings.Index(out[idx:], "/end REF_CHARACTERISTIC")
	if end < 0 || !strings.Contains(out[idx:idx+end], "gain") {
		t.Errorf("expected gain listed in params's REF_CHARACTERISTIC group")
	}
}

func TestWriteBoolCharacteristicUsesPredefinedBoolConversion(t *testing.T) {
	r := registry.New()
	r.SetAppInfo(mcid.NewIdentifier("demo"), "", 1)
	if err := r.CalSegs.Add(mcid.NewIdentifier("params"), 0, 16); err != nil {
		t.Fatalf("add calseg: %v", err)
	}
	dimType := mctype.NewScalarObject(mctype.VBool, mctype.Characteristic)
	if err := r.Instances.Add(mcid.NewIdentifier("enabled"), dimType, mcaddr.NewCalSegRel(mcid.NewIdentifier("params"), 0)); err != nil {
		t.Fatalf("add instance: %v", err)
	}
	r.Freeze()

	var sb strings.Builder
	if err := Write(&sb, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(sb.String(), "CHARACTERISTIC enabled \"\" VALUE") {
		t.Errorf("expected BOOL characteristic VALUE record, got:\n%s", sb.String())
	}
	if !strings.Contains(sb.String(), " BOOL 0 BOOL 0 1") {
		t.Errorf("expected BOOL record layout and BOOL conversion, got:\n%s", sb.String())
	}
}
