package watchdog

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeKiller struct {
	mu    sync.Mutex
	calls []int
	hit   chan struct{}
}

func newFakeKiller() *fakeKiller {
	return &fakeKiller{hit: make(chan struct{}, 4)}
}

func (f *fakeKiller) KillGroup(pgid int) error {
	f.record(-pgid)
	return nil
}

func (f *fakeKiller) Kill(pid int) error {
	f.record(pid)
	return nil
}

func (f *fakeKiller) record(v int) {
	f.mu.Lock()
	f.calls = append(f.calls, v)
	f.mu.Unlock()
	f.hit <- struct{}{}
}

func (f *fakeKiller) snapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func TestFiresAfterDeadline(t *testing.T) {
	k := newFakeKiller()
	w := New(k)
	if err := w.Arm(42, 10*time.Millisecond); err != nil {
		t.Fatalf("arm: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-k.hit:
		case <-time.After(2 * time.Second):
			t.Fatalf("watchdog did not fire")
		}
	}
	if !w.Fired() {
		t.Fatalf("expected fired")
	}
	calls := k.snapshot()
	if len(calls) != 2 || calls[0] != -42 || calls[1] != 42 {
		t.Fatalf("expected group kill then pid kill, got %v", calls)
	}
	if w.Cancel() {
		t.Fatalf("cancel after firing must report false")
	}
}

func TestCancelBeforeDeadline(t *testing.T) {
	k := newFakeKiller()
	w := New(k)
	if err := w.Arm(42, time.Hour); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if !w.Cancel() {
		t.Fatalf("expected cancel to stop a pending kill")
	}
	if w.Cancel() {
		t.Fatalf("second cancel must be a no-op")
	}
	if w.Fired() || len(k.snapshot()) != 0 {
		t.Fatalf("cancelled watchdog must not kill")
	}
}

func TestCancelIdle(t *testing.T) {
	w := New(newFakeKiller())
	if w.Cancel() {
		t.Fatalf("cancel on idle watchdog must report false")
	}
}

func TestArmErrors(t *testing.T) {
	w := New(newFakeKiller())
	if err := w.Arm(0, time.Second); err != ErrInvalidPid {
		t.Fatalf("expected ErrInvalidPid, got %v", err)
	}
	if err := w.Arm(7, time.Hour); err != nil {
		t.Fatalf("arm: %v", err)
	}
	defer w.Cancel()
	if err := w.Arm(7, time.Hour); err != ErrArmed {
		t.Fatalf("expected ErrArmed, got %v", err)
	}
}
