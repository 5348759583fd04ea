//go:build unix

package procutil

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// PrepareBackground starts cmd in its own process group and makes context
// cancellation kill the whole group, so helpers spawned by a player CLI do
// not outlive the action timeout.
func PrepareBackground(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
