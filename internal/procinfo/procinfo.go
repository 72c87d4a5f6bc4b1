// Package procinfo answers one question: which process owns the foreground window.
package procinfo

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

var ErrUnsupported = errors.New("foreground process query is not supported on this platform")

type Query interface {
	ForegroundProcess() (string, error)
}

type Foreground struct{}

func New() Foreground {
	return Foreground{}
}

// ForegroundProcess returns the executable name of the foreground process, e.g. "game.exe".
func (Foreground) ForegroundProcess() (string, error) {
	return foregroundProcess()
}

// NameByPID resolves the executable name of a process.
func NameByPID(pid uint32) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	name, err := p.Name()
	if err != nil {
		return "", fmt.Errorf("failed to get name of process %d: %w", pid, err)
	}
	return name, nil
}
