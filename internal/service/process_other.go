//go:build !unix

package service

import (
	"os"
	"os/exec"
)

func ConfigureProcessGroup(_ *exec.Cmd) {}

func TerminateProcessGroup(pid int) error {
	return KillProcessGroup(pid)
}

func KillProcessGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
