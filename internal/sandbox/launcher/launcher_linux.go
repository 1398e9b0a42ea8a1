//go:build linux

package launcher

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"unsafe"

	"ojbox/internal/sandbox/limits"
	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/security"

	"golang.org/x/sys/unix"
)

// exit status used only when the fault signal could not be raised
const faultExitCode = 125

// Main runs the launcher. It never returns: either the target program
// replaces the process, or the launcher dies after reporting a fault.
func Main() {
	// everything from here to exec must stay on one thread
	runtime.LockOSThread()
	debug.SetGCPercent(-1)
	_, _ = unix.FcntlInt(StatusFD, unix.F_SETFD, unix.FD_CLOEXEC)

	code, err := run(os.Stdin)
	reportFault(code, err)
}

func run(stdin *os.File) (result.SetupError, error) {
	req, err := ReadRequest(stdin)
	if err != nil {
		return result.InvalidConfig, err
	}
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return result.InvalidConfig, err
	}
	profile, err := security.Lookup(cfg.SeccompProfile)
	if err != nil {
		return result.InvalidConfig, err
	}

	img, err := prepareImage(cfg.ExecutablePath, cfg.Argv(), cfg.Env)
	if err != nil {
		return result.InvalidConfig, err
	}

	head, tail := splitAddressSpace(limits.Plan(cfg))
	if err := limits.Apply(head); err != nil {
		return result.SetrlimitFailed, err
	}
	if err := redirect(cfg.InputPath, cfg.OutputPath, cfg.ErrorPath); err != nil {
		return result.Dup2Failed, err
	}
	if err := security.DropPrivileges(cfg.UID, cfg.GID); err != nil {
		return result.SetuidFailed, err
	}
	if err := security.LoadFilter(profile, img.pathPtr()); err != nil {
		return result.LoadSeccompFailed, err
	}
	// no allocation is safe past this point
	if err := limits.Apply(tail); err != nil {
		return result.SetrlimitFailed, err
	}
	img.reportHandoff()
	errno := img.exec()
	img.reportExecFailure(errno)
	return result.ExecveFailed, errno
}

// splitAddressSpace separates the address space limit so it can be installed
// right before exec, after the launcher is done allocating.
func splitAddressSpace(plan []limits.Limit) (head, tail []limits.Limit) {
	for _, l := range plan {
		if l.Resource == limits.AddressSpace {
			tail = append(tail, l)
			continue
		}
		head = append(head, l)
	}
	return head, tail
}

// execImage holds the NUL-terminated execve arguments, built ahead of time.
type execImage struct {
	path    *byte
	argv    []*byte
	envp    []*byte
	handoff []byte
	fault   []byte
	usage   unix.Rusage
}

func prepareImage(path string, argv, env []string) (*execImage, error) {
	p, err := unix.BytePtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("exe path: %w", err)
	}
	a, err := bytePtrSlice(argv)
	if err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	e, err := bytePtrSlice(env)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	return &execImage{
		path:    p,
		argv:    a,
		envp:    e,
		handoff: make([]byte, 0, 64),
		fault:   make([]byte, 0, 512),
	}, nil
}

// bytePtrSlice converts ss to a nil-terminated array of C strings.
func bytePtrSlice(ss []string) ([]*byte, error) {
	ptrs := make([]*byte, len(ss)+1)
	for i, s := range ss {
		p, err := unix.BytePtrFromString(s)
		if err != nil {
			return nil, err
		}
		ptrs[i] = p
	}
	return ptrs, nil
}

func (img *execImage) pathPtr() uintptr {
	return uintptr(unsafe.Pointer(img.path))
}

func (img *execImage) exec() unix.Errno {
	_, _, errno := unix.RawSyscall(unix.SYS_EXECVE,
		uintptr(unsafe.Pointer(img.path)),
		uintptr(unsafe.Pointer(&img.argv[0])),
		uintptr(unsafe.Pointer(&img.envp[0])))
	runtime.KeepAlive(img)
	return errno
}

// reportHandoff tells the parent the launcher's own peak RSS. The kernel
// carries it across exec, so the parent needs it to tell the program's peak
// from the launcher's.
func (img *execImage) reportHandoff() {
	_, _, errno := unix.RawSyscall(unix.SYS_GETRUSAGE, uintptr(unix.RUSAGE_SELF), uintptr(unsafe.Pointer(&img.usage)), 0)
	if errno != 0 {
		return
	}
	buf := append(img.handoff[:0], `{"launcher_max_rss":`...)
	buf = strconv.AppendInt(buf, int64(img.usage.Maxrss)*1024, 10)
	buf = append(buf, "}\n"...)
	rawWrite(StatusFD, buf)
}

// rawWrite skips the scheduler hand-off of unix.Write, which may start a
// new thread once the filter forbids clone.
func rawWrite(fd int, buf []byte) {
	if len(buf) == 0 {
		return
	}
	_, _, _ = unix.RawSyscall(unix.SYS_WRITE, uintptr(fd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	runtime.KeepAlive(buf)
}

// reportExecFailure writes the fault into the preallocated buffer; the
// address space limit may already forbid new allocations.
func (img *execImage) reportExecFailure(errno unix.Errno) {
	buf := append(img.fault[:0], `{"setup_error":"EXECVE_FAILED","message":"execve: errno `...)
	buf = strconv.AppendInt(buf, int64(errno), 10)
	buf = append(buf, "\"}\n"...)
	rawWrite(StatusFD, buf)
	raiseFault()
}

// redirect opens the stream targets and installs them as fds 0, 1 and 2.
// Empty paths read from or write to /dev/null. An output and error path
// naming the same file share one descriptor.
func redirect(input, output, errPath string) error {
	input = orDevNull(input)
	output = orDevNull(output)
	errPath = orDevNull(errPath)

	in, err := unix.Open(input, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open input %s: %w", input, err)
	}
	out, err := unix.Open(output, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return fmt.Errorf("open output %s: %w", output, err)
	}
	errFD := out
	if errPath != output {
		errFD, err = unix.Open(errPath, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC|unix.O_CLOEXEC, 0o644)
		if err != nil {
			return fmt.Errorf("open error %s: %w", errPath, err)
		}
	}

	for target, fd := range [3]int{in, out, errFD} {
		if err := unix.Dup2(fd, target); err != nil {
			return fmt.Errorf("dup2 %d->%d: %w", fd, target, err)
		}
	}
	return nil
}

func orDevNull(path string) string {
	if path == "" {
		return os.DevNull
	}
	return path
}

// reportFault sends the failure to the parent and terminates the launcher.
func reportFault(code result.SetupError, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if data, mErr := json.Marshal(Fault{SetupError: code, Message: msg}); mErr == nil {
		_, _ = unix.Write(StatusFD, data)
	}
	raiseFault()
}

// raiseFault terminates the launcher with SIGUSR1, which the parent reads
// as a sandbox fault. The runtime ignores SIGUSR1 when nobody listens, so
// the default disposition is restored first.
func raiseFault() {
	if err := resetSignal(unix.SIGUSR1); err == nil {
		var set unix.Sigset_t
		set.Val[0] = 1 << (uint(unix.SIGUSR1) - 1)
		_ = unix.PthreadSigmask(unix.SIG_UNBLOCK, &set, nil)
		_ = unix.Tgkill(unix.Getpid(), unix.Gettid(), unix.SIGUSR1)
	}
	os.Exit(faultExitCode)
}
