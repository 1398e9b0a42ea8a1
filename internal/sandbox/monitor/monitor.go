// Package monitor polls a running child until it can be reaped.
package monitor

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const (
	DefaultInitialDelay = 15 * time.Millisecond
	DefaultInterval     = 15 * time.Millisecond
)

// Snapshot is one sample of a live process.
type Snapshot struct {
	// MemoryBytes is data plus stack, the same figure the verdict caps.
	MemoryBytes int64
	CPUTime     time.Duration
	// State is the single-letter scheduler state (R, S, D, Z, T).
	State string
	// Executable is the resolved image path, empty when unknown.
	Executable string
}

// SnapshotSource samples a process by pid.
type SnapshotSource interface {
	Snapshot(pid int) (Snapshot, error)
}

// Exit is the status and usage of a reaped child.
type Exit struct {
	Status unix.WaitStatus
	Rusage unix.Rusage
}

// Reaper collects a terminated child without blocking.
// It returns nil while the child is still running.
type Reaper interface {
	Reap(pid int) (*Exit, error)
}

// ErrWait wraps reap failures.
var ErrWait = errors.New("wait for child failed")

// Options tunes the polling loop. Zero values take the defaults.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	// IgnoreExecutable drops samples taken while the child still runs
	// this image, i.e. before it replaced the launcher.
	IgnoreExecutable string
}

// Observation is everything the monitor learned about one child.
type Observation struct {
	PeakMemoryBytes int64
	Exit            Exit
	Samples         int
	LastState       string
	// LastCPUTime is the CPU time of the last accepted sample.
	LastCPUTime time.Duration
}

// Monitor watches one child at a time from the calling goroutine.
type Monitor struct {
	source SnapshotSource
	reaper Reaper
	opts   Options
}

func New(source SnapshotSource, reaper Reaper, opts Options) *Monitor {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Monitor{source: source, reaper: reaper, opts: opts}
}

// Watch samples pid until it is reaped. Sampling errors are ignored: the
// process may exit between two samples. A reap error ends the loop with
// ErrWait and leaves the child to the caller.
func (m *Monitor) Watch(pid int) (Observation, error) {
	var obs Observation
	time.Sleep(m.opts.InitialDelay)
	for {
		m.sample(pid, &obs)
		time.Sleep(m.opts.Interval)

		exit, err := m.reaper.Reap(pid)
		if err != nil {
			return obs, fmt.Errorf("%w: pid %d: %v", ErrWait, pid, err)
		}
		if exit != nil {
			obs.Exit = *exit
			return obs, nil
		}
	}
}

func (m *Monitor) sample(pid int, obs *Observation) {
	snap, err := m.source.Snapshot(pid)
	if err != nil {
		return
	}
	if m.opts.IgnoreExecutable != "" && snap.Executable == m.opts.IgnoreExecutable {
		return
	}
	obs.Samples++
	obs.LastState = snap.State
	obs.LastCPUTime = snap.CPUTime
	if snap.MemoryBytes > obs.PeakMemoryBytes {
		obs.PeakMemoryBytes = snap.MemoryBytes
	}
}

// MaxRSSBytes converts the kernel's peak resident size (kilobytes) to bytes.
func MaxRSSBytes(ru unix.Rusage) int64 {
	return int64(ru.Maxrss) * 1024
}

// CPUTimeMs is user plus system time in milliseconds.
func CPUTimeMs(ru unix.Rusage) int64 {
	user := time.Duration(ru.Utime.Nano())
	sys := time.Duration(ru.Stime.Nano())
	return (user + sys).Milliseconds()
}

// MemoryBytes is the program's peak memory. The kernel's peak RSS survives
// exec, so it includes the launcher: it only counts when it is above
// launcherRSS, the launcher's own peak just before exec. Otherwise the
// sampled peak stands alone. A zero launcherRSS means exec never happened.
func (o Observation) MemoryBytes(launcherRSS int64) int64 {
	rss := MaxRSSBytes(o.Exit.Rusage)
	if launcherRSS > 0 && rss > launcherRSS && rss > o.PeakMemoryBytes {
		return rss
	}
	return o.PeakMemoryBytes
}
