//go:build linux

package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcFS samples processes from a mounted proc filesystem.
type ProcFS struct {
	fs procfs.FS
}

// NewProcFS opens the proc filesystem at mountPoint ("" means /proc).
func NewProcFS(mountPoint string) (*ProcFS, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", mountPoint, err)
	}
	return &ProcFS{fs: fs}, nil
}

func (p *ProcFS) Snapshot(pid int) (Snapshot, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return Snapshot{}, err
	}
	stat, err := proc.Stat()
	if err != nil {
		return Snapshot{}, err
	}
	status, err := proc.NewStatus()
	if err != nil {
		return Snapshot{}, err
	}
	exe, _ := proc.Executable()
	return Snapshot{
		MemoryBytes: int64(status.VmData + status.VmStk),
		CPUTime:     time.Duration(stat.CPUTime() * float64(time.Second)),
		State:       stat.State,
		Executable:  exe,
	}, nil
}

// Wait4Reaper reaps with a non-blocking wait4.
type Wait4Reaper struct{}

func (Wait4Reaper) Reap(pid int) (*Exit, error) {
	var status unix.WaitStatus
	var ru unix.Rusage
	got, err := unix.Wait4(pid, &status, unix.WNOHANG, &ru)
	if errors.Is(err, unix.EINTR) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if got == 0 {
		return nil, nil
	}
	return &Exit{
		Status: status,
		Rusage: ru,
	}, nil
}
