//go:build unix

package llm

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the model in its own process group and kills the whole group
// on cancellation, so runner children die with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
