//go:build windows

package wincap

import (
	"fmt"
	"syscall"

	"nexuscap/internal/locator"
)

type gdiEnumerator struct{}

// NewWindowEnumerator lists top-level windows via EnumWindows.
func NewWindowEnumerator() locator.WindowEnumerator { return gdiEnumerator{} }

func (gdiEnumerator) Windows() ([]locator.WindowInfo, error) {
	var wins []locator.WindowInfo
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		wins = append(wins, locator.WindowInfo{
			Handle:  locator.Window(hwnd),
			PID:     windowPID(hwnd),
			Title:   windowTitle(hwnd),
			Visible: windowVisible(hwnd),
			Owned:   windowOwner(hwnd) != 0,
		})
		return 1 // continue enumeration
	})
	ret, _, err := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return wins, nil
}
