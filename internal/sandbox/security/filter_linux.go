//go:build linux

package security

import (
	"fmt"

	seccomp "github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"
)

// LoadFilter compiles p and installs it on the calling process.
// exePtr is the address of the path string the caller will hand to execve;
// a restricted profile lets execve through only with that exact pointer.
// The no-new-privs bit is set, so the filter can be loaded after the
// privilege drop.
func LoadFilter(p Profile, exePtr uintptr) error {
	if p.Disabled {
		return nil
	}
	filter, err := buildFilter(p, exePtr)
	if err != nil {
		return err
	}
	defer filter.Release()

	if err := filter.SetNoNewPrivsBit(true); err != nil {
		return fmt.Errorf("set no new privs: %w", err)
	}
	if err := filter.Load(); err != nil {
		return fmt.Errorf("load seccomp filter %s: %w", p.Name, err)
	}
	return nil
}

func buildFilter(p Profile, exePtr uintptr) (*seccomp.ScmpFilter, error) {
	defaultAction := seccomp.ActAllow
	if p.AllowList {
		defaultAction = seccomp.ActKillProcess
	}
	filter, err := seccomp.NewFilter(defaultAction)
	if err != nil {
		return nil, fmt.Errorf("create seccomp filter: %w", err)
	}

	b := &ruleBuilder{filter: filter}
	if p.AllowList {
		for _, name := range p.Allow {
			if name == "execve" && p.RestrictExec {
				continue
			}
			if (name == "open" || name == "openat") && p.ReadOnlyOpen {
				continue
			}
			b.add(name, seccomp.ActAllow)
		}
		if p.RestrictExec {
			b.addCond("execve", seccomp.ActAllow, 0, seccomp.CompareEqual, uint64(exePtr))
		} else {
			b.add("execve", seccomp.ActAllow)
		}
		if p.ReadOnlyOpen {
			b.addCond("open", seccomp.ActAllow, 1, seccomp.CompareMaskedEqual, unix.O_WRONLY|unix.O_RDWR, 0)
			b.addCond("openat", seccomp.ActAllow, 2, seccomp.CompareMaskedEqual, unix.O_WRONLY|unix.O_RDWR, 0)
		}
	} else {
		for _, name := range p.Deny {
			b.add(name, seccomp.ActKillProcess)
		}
		if p.RestrictExec {
			b.addCond("execve", seccomp.ActKillProcess, 0, seccomp.CompareNotEqual, uint64(exePtr))
		}
		if p.ReadOnlyOpen {
			for _, flag := range []uint64{unix.O_WRONLY, unix.O_RDWR} {
				b.addCond("open", seccomp.ActKillProcess, 1, seccomp.CompareMaskedEqual, flag, flag)
				b.addCond("openat", seccomp.ActKillProcess, 2, seccomp.CompareMaskedEqual, flag, flag)
			}
		}
	}
	if b.err != nil {
		filter.Release()
		return nil, b.err
	}
	return filter, nil
}

// ruleBuilder keeps the first error so rule lists read straight through.
// Names the native architecture does not have (open on arm64) are skipped.
type ruleBuilder struct {
	filter *seccomp.ScmpFilter
	err    error
}

func (b *ruleBuilder) resolve(name string) (seccomp.ScmpSyscall, bool) {
	call, err := seccomp.GetSyscallFromName(name)
	if err != nil {
		return 0, false
	}
	return call, true
}

func (b *ruleBuilder) add(name string, action seccomp.ScmpAction) {
	if b.err != nil {
		return
	}
	call, ok := b.resolve(name)
	if !ok {
		return
	}
	if err := b.filter.AddRule(call, action); err != nil {
		b.err = fmt.Errorf("add seccomp rule %s: %w", name, err)
	}
}

func (b *ruleBuilder) addCond(name string, action seccomp.ScmpAction, arg uint, op seccomp.ScmpCompareOp, values ...uint64) {
	if b.err != nil {
		return
	}
	call, ok := b.resolve(name)
	if !ok {
		return
	}
	cond, err := seccomp.MakeCondition(arg, op, values...)
	if err != nil {
		b.err = fmt.Errorf("seccomp condition %s: %w", name, err)
		return
	}
	if err := b.filter.AddRuleConditional(call, action, []seccomp.ScmpCondition{cond}); err != nil {
		b.err = fmt.Errorf("add seccomp rule %s: %w", name, err)
	}
}
