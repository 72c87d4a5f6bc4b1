//go:build windows

package procinfo

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

var errNoForegroundWindow = errors.New("no foreground window")

func foregroundProcess() (string, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return "", errNoForegroundWindow
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
		return "", fmt.Errorf("failed to get window process: %w", err)
	}
	return NameByPID(pid)
}
