//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the process group for a graceful shutdown.
func terminate(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// kill sends SIGKILL to the process group.
func kill(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
