package infra

import (
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// ProcessControllerImpl implements domain.ProcessController using
// gopsutil for signal delivery and a direct syscall for priority.
type ProcessControllerImpl struct{}

// NewProcessController creates a controller.
func NewProcessController() *ProcessControllerImpl {
	return &ProcessControllerImpl{}
}

// Signal delivers the OS signal mapped from kind to pid.
func (c *ProcessControllerImpl) Signal(pid int32, kind domain.SignalKind) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return classify("signal", pid, err)
	}

	switch kind {
	case domain.SignalKill:
		err = p.Kill()
	case domain.SignalTerminate:
		err = p.Terminate()
	case domain.SignalStop:
		err = p.Suspend()
	case domain.SignalContinue:
		err = p.Resume()
	default:
		return fmt.Errorf("%w: unknown signal %q", domain.ErrInvalidInput, kind)
	}
	return classify("signal", pid, err)
}

// SetPriority renices pid. Range validation happens before this call;
// the value goes straight to the OS.
func (c *ProcessControllerImpl) SetPriority(pid int32, nice int) error {
	err := unix.Setpriority(unix.PRIO_PROCESS, int(pid), nice)
	return classify("setpriority", pid, err)
}

// classify maps OS and gopsutil errors onto the domain taxonomy. A
// vanished process becomes not found, a refused operation becomes
// permission denied, anything else is wrapped as an OS error.
func classify(op string, pid int32, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, os.ErrProcessDone),
		errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%s pid %d: %w", op, pid, domain.ErrNotFound)
	case errors.Is(err, unix.EPERM),
		errors.Is(err, unix.EACCES),
		errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%s pid %d: %w", op, pid, domain.ErrPermissionDenied)
	}
	return &domain.OSError{Op: op, PID: pid, Err: err}
}

// Ensure ProcessControllerImpl implements domain.ProcessController.
var _ domain.ProcessController = (*ProcessControllerImpl)(nil)
