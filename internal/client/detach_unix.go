//go:build !windows

package client

import (
	"os/exec"
	"syscall"
)

// detach puts the spawned daemon in its own session so terminal
// signals aimed at the CLI never reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
