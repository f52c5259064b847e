//go:build unix

package engine

import (
	"fmt"
	"os"
	"syscall"
)

func suspend(process *os.Process) error {
	err := process.Signal(syscall.SIGSTOP)
	if err != nil {
		return fmt.Errorf("failed to suspend speech process: %w", err)
	}

	return nil
}

func resume(process *os.Process) error {
	err := process.Signal(syscall.SIGCONT)
	if err != nil {
		return fmt.Errorf("failed to resume speech process: %w", err)
	}

	return nil
}
