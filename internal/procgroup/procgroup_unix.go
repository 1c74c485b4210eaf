// SPDX-License-Identifier: MIT

//go:build unix

// Package procgroup places external commands in their own process group so a
// stage and every child it forks can be signalled as one unit.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

// Set configures cmd to start as a process group leader. Must be called
// before cmd.Start; Signal relies on it.
func Set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Signal delivers sig to the whole process group of cmd. A process that has
// already exited is treated as success.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}

	// Negative PGID addresses the whole group.
	if err := syscall.Kill(-pgid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}
