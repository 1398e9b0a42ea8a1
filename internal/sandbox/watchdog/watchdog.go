// Package watchdog kills a child that outlives its real-time deadline.
package watchdog

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Killer delivers SIGKILL. Errors are ignored by the watchdog; the target
// may already be gone.
type Killer interface {
	KillGroup(pgid int) error
	Kill(pid int) error
}

var (
	// ErrArmed is returned when Arm is called twice.
	ErrArmed = errors.New("watchdog already armed")
	// ErrInvalidPid is returned for a pid that cannot name a child.
	ErrInvalidPid = errors.New("watchdog: invalid pid")
)

// Watchdog is single-use: Idle, then Armed, then Fired or Cancelled.
type Watchdog struct {
	killer Killer

	mu        sync.Mutex
	armed     bool
	timer     *time.Timer
	done      chan struct{}
	cancelled atomic.Bool
	fired     atomic.Bool
}

// New returns an idle watchdog.
func New(killer Killer) *Watchdog {
	return &Watchdog{killer: killer}
}

// Arm starts the countdown for pid. The group led by pid is killed first,
// then pid itself.
func (w *Watchdog) Arm(pid int, deadline time.Duration) error {
	if pid <= 0 {
		return ErrInvalidPid
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed {
		return ErrArmed
	}
	w.armed = true
	w.done = make(chan struct{})
	w.timer = time.NewTimer(deadline)
	go w.wait(pid, w.timer, w.done)
	return nil
}

func (w *Watchdog) wait(pid int, timer *time.Timer, done chan struct{}) {
	select {
	case <-timer.C:
	case <-done:
		return
	}
	if w.cancelled.Load() {
		return
	}
	w.fired.Store(true)
	_ = w.killer.KillGroup(pid)
	_ = w.killer.Kill(pid)
}

// Cancel stops a pending kill. It reports whether the watchdog was armed
// and had not fired. Calling it on an idle watchdog is a no-op.
func (w *Watchdog) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed || w.cancelled.Load() {
		return false
	}
	w.cancelled.Store(true)
	w.timer.Stop()
	close(w.done)
	return !w.fired.Load()
}

// Fired reports whether the deadline passed and the kill was sent.
func (w *Watchdog) Fired() bool {
	return w.fired.Load()
}
