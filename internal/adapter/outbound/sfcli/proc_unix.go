//go:build !windows

package sfcli

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr places the child in its own process group so cancellation
// can reach the CLI's plugin subprocesses.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminate kills the child's entire process group.
func terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}
