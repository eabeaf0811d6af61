//go:build windows

package core

import (
	"log"
	"os/exec"
	"syscall"
	"time"
)

func setupProcessGroup(cmd *exec.Cmd, jobID string) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
	cmd.WaitDelay = 5 * time.Second

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		log.Printf("[FETCH] %s: Killing process %d", jobID, cmd.Process.Pid)
		return cmd.Process.Kill()
	}
}
