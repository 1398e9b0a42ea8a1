//go:build linux

package launcher

import (
	"testing"

	"ojbox/internal/sandbox/limits"
	"ojbox/internal/sandbox/spec"
)

func TestSplitAddressSpace(t *testing.T) {
	plan := limits.Plan(spec.ExecutionConfig{
		MaxCPUTime:       1000,
		MaxMemory:        1 << 20,
		MaxOutputSize:    1 << 10,
		MaxProcessNumber: spec.Unlimited,
	})
	head, tail := splitAddressSpace(plan)
	if len(head) != 2 || len(tail) != 1 {
		t.Fatalf("unexpected split %v / %v", head, tail)
	}
	if tail[0].Resource != limits.AddressSpace {
		t.Fatalf("tail must hold the address space limit: %v", tail)
	}
	for _, l := range head {
		if l.Resource == limits.AddressSpace {
			t.Fatalf("address space limit leaked into head: %v", head)
		}
	}
}

func TestPrepareImage(t *testing.T) {
	img, err := prepareImage("/bin/echo", []string{"/bin/echo", "hi"}, nil)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(img.argv) != 3 || img.argv[2] != nil {
		t.Fatalf("argv must be nil-terminated: %v", img.argv)
	}
	if len(img.envp) != 1 || img.envp[0] != nil {
		t.Fatalf("empty env must still be nil-terminated: %v", img.envp)
	}
	if img.pathPtr() == 0 {
		t.Fatalf("path pointer must be set")
	}
}

func TestPrepareImageRejectsNUL(t *testing.T) {
	if _, err := prepareImage("/bin/a\x00b", nil, nil); err == nil {
		t.Fatalf("expected error for NUL in path")
	}
}
