package limits

import (
	"testing"

	"ojbox/internal/sandbox/spec"
)

func TestPlanAllDimensions(t *testing.T) {
	cfg := spec.ExecutionConfig{
		MaxCPUTime:       1500,
		MaxRealTime:      3000,
		MaxMemory:        128 << 20,
		MaxOutputSize:    1 << 20,
		MaxProcessNumber: 4,
	}
	plan := Plan(cfg)
	want := []Limit{
		{Resource: CPU, Value: 2},
		{Resource: FileSize, Value: 1 << 20},
		{Resource: Processes, Value: 4},
		{Resource: AddressSpace, Value: 256 << 20},
	}
	if len(plan) != len(want) {
		t.Fatalf("expected %d limits, got %v", len(want), plan)
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Fatalf("limit %d: expected %+v, got %+v", i, want[i], plan[i])
		}
	}
}

func TestPlanCPUSlack(t *testing.T) {
	cases := map[int64]uint64{
		1:    1,
		999:  1,
		1000: 2,
		2500: 3,
	}
	for ms, seconds := range cases {
		plan := Plan(spec.ExecutionConfig{
			MaxCPUTime:       ms,
			MaxMemory:        spec.Unlimited,
			MaxOutputSize:    spec.Unlimited,
			MaxProcessNumber: spec.Unlimited,
		})
		if len(plan) != 1 || plan[0].Resource != CPU || plan[0].Value != seconds {
			t.Fatalf("cpu %dms: expected %ds, got %v", ms, seconds, plan)
		}
	}
}

func TestPlanSkipsUnlimited(t *testing.T) {
	plan := Plan(spec.ExecutionConfig{
		MaxCPUTime:       spec.Unlimited,
		MaxRealTime:      spec.Unlimited,
		MaxMemory:        spec.Unlimited,
		MaxOutputSize:    spec.Unlimited,
		MaxProcessNumber: spec.Unlimited,
	})
	if len(plan) != 0 {
		t.Fatalf("expected empty plan, got %v", plan)
	}
}

func TestPlanAddressSpaceLast(t *testing.T) {
	plan := Plan(spec.ExecutionConfig{
		MaxCPUTime:       spec.Unlimited,
		MaxMemory:        1 << 20,
		MaxOutputSize:    10,
		MaxProcessNumber: spec.Unlimited,
	})
	if len(plan) != 2 || plan[len(plan)-1].Resource != AddressSpace {
		t.Fatalf("address space must be installed last: %v", plan)
	}
}
