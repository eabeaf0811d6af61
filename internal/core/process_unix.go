//go:build !windows

package core

import (
	"log"
	"os/exec"
	"syscall"
	"time"
)

// setupProcessGroup runs the tool in its own process group so cancelling a
// job also stops the children yt-dlp spawns for ffmpeg.
func setupProcessGroup(cmd *exec.Cmd, jobID string) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = 5 * time.Second

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		pgid := -cmd.Process.Pid
		log.Printf("[FETCH] %s: Terminating process group %d", jobID, cmd.Process.Pid)
		if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil {
			log.Printf("[FETCH] %s: SIGTERM failed, sending SIGKILL: %v", jobID, err)
			return syscall.Kill(pgid, syscall.SIGKILL)
		}
		return nil
	}
}
