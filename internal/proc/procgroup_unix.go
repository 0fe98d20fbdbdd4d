//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup starts the child in its own process group and makes
// cancellation SIGKILL the whole group, so a pipeline consumer or any
// grandchild dies together with the command.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
}
