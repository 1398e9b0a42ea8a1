// Package security holds the privilege drop and the named syscall filter
// profiles applied to the child before exec.
package security

import (
	"sort"

	"ojbox/pkg/errors"
)

// Profile describes one syscall filter.
//
// A deny-list profile allows everything except Deny. An allow-list profile
// kills everything except Allow. Exec and write-open restrictions are
// layered on top in both modes.
type Profile struct {
	Name string
	// AllowList selects kill-by-default.
	AllowList bool
	Allow     []string
	Deny      []string
	// RestrictExec permits execve only on the configured executable.
	RestrictExec bool
	// ReadOnlyOpen kills open and openat with write access flags.
	ReadOnlyOpen bool
	// Disabled marks the explicit no-op profile.
	Disabled bool
}

// NoneProfile is the name of the profile that loads no filter.
const NoneProfile = "none"

// syscalls the launcher itself may issue between loading the filter and
// exec, or while reporting a failed exec
var launcherSyscalls = []string{
	"execve", "write", "futex", "sched_yield", "nanosleep", "clock_nanosleep",
	"rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "sigaltstack",
	"madvise", "mmap", "munmap", "getpid", "gettid", "tgkill", "exit", "exit_group",
	"close", "epoll_pwait", "clock_gettime", "getrusage", "prlimit64", "setrlimit",
}

// libc start-up and a typical C or C++ solution
var libcSyscalls = []string{
	"read", "readv", "pread64", "write", "writev", "lseek", "close",
	"open", "openat", "fstat", "newfstatat", "statx", "access", "faccessat", "faccessat2",
	"readlink", "readlinkat",
	"mmap", "mprotect", "munmap", "brk", "mremap",
	"arch_prctl", "uname", "sysinfo", "clock_gettime", "gettimeofday", "time",
	"set_tid_address", "set_robust_list", "rseq", "prlimit64", "getrandom",
	"exit_group", "futex", "ioctl", "fcntl",
}

var profiles = map[string]Profile{
	"general": {
		Name:         "general",
		Deny:         []string{"socket", "clone", "fork", "vfork", "kill", "execveat"},
		RestrictExec: true,
		ReadOnlyOpen: true,
	},
	"c_cpp": {
		Name:         "c_cpp",
		AllowList:    true,
		Allow:        mergeNames(libcSyscalls, launcherSyscalls),
		RestrictExec: true,
		ReadOnlyOpen: true,
	},
	"py": {
		Name:         "py",
		Deny:         []string{"clone", "fork", "vfork", "kill", "execveat"},
		RestrictExec: true,
		ReadOnlyOpen: true,
	},
	"js": {
		Name:         "js",
		Deny:         []string{"socket", "fork", "vfork", "kill", "execveat"},
		RestrictExec: true,
		ReadOnlyOpen: true,
	},
	"csharp": {
		Name:         "csharp",
		Deny:         []string{"fork", "vfork", "execveat"},
		RestrictExec: true,
	},
	NoneProfile: {
		Name:     NoneProfile,
		Disabled: true,
	},
}

// Lookup resolves a profile by name. The empty name resolves to "none".
func Lookup(name string) (Profile, error) {
	if name == "" {
		name = NoneProfile
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, errors.Newf(errors.ProfileNotFound, "unknown seccomp profile %q", name).
			WithDetail("profile", name)
	}
	return p, nil
}

// Names lists the built-in profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mergeNames(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, name := range g {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
