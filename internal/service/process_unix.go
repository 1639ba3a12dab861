//go:build unix

package service

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ConfigureProcessGroup starts cmd in its own process group so that signals
// reach the command and every child it spawns.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// TerminateProcessGroup sends SIGTERM to the process group led by pid.
func TerminateProcessGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGTERM)
}

// KillProcessGroup sends SIGKILL to the process group led by pid.
func KillProcessGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}
