//go:build windows

package wincap

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindow                = user32.NewProc("GetWindow")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procGetClientRect            = user32.NewProc("GetClientRect")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetDC                    = user32.NewProc("GetDC")
	procReleaseDC                = user32.NewProc("ReleaseDC")
	procPrintWindow              = user32.NewProc("PrintWindow")

	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
	procBitBlt             = gdi32.NewProc("BitBlt")
)

const (
	gwOwner             = 4
	pwRenderFullContent = 2
	biRGB               = 0
	dibRGBColors        = 0
	srcCopy             = 0x00CC0020
)

type rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

func clientRect(hwnd uintptr) (rect, error) {
	var rc rect
	ret, _, err := procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&rc)))
	if ret == 0 {
		return rect{}, fmt.Errorf("GetClientRect: %w", err)
	}
	return rc, nil
}

func windowRect(hwnd uintptr) (rect, error) {
	var rc rect
	ret, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rc)))
	if ret == 0 {
		return rect{}, fmt.Errorf("GetWindowRect: %w", err)
	}
	return rc, nil
}

func windowTitle(hwnd uintptr) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowVisible(hwnd uintptr) bool {
	ret, _, _ := procIsWindowVisible.Call(hwnd)
	return ret != 0
}

func windowOwner(hwnd uintptr) uintptr {
	owner, _, _ := procGetWindow.Call(hwnd, gwOwner)
	return owner
}

func windowPID(hwnd uintptr) int32 {
	var pid uint32
	procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return int32(pid)
}

// grabWindowGDI renders the window's client area into a 32-bit top-down DIB
// and returns the BGRA pixels. PrintWindow handles occluded and offscreen
// windows; BitBlt from the window DC is the fallback when PrintWindow
// refuses.
func grabWindowGDI(hwnd uintptr) ([]byte, int, int, error) {
	rc, err := clientRect(hwnd)
	if err != nil {
		return nil, 0, 0, err
	}
	width := int(rc.Right - rc.Left)
	height := int(rc.Bottom - rc.Top)
	if width <= 0 || height <= 0 {
		return nil, 0, 0, fmt.Errorf("degenerate client area %dx%d", width, height)
	}

	winDC, _, dcErr := procGetDC.Call(hwnd)
	if winDC == 0 {
		return nil, 0, 0, fmt.Errorf("GetDC: %w", dcErr)
	}
	defer procReleaseDC.Call(hwnd, winDC)

	memDC, _, dcErr := procCreateCompatibleDC.Call(winDC)
	if memDC == 0 {
		return nil, 0, 0, fmt.Errorf("CreateCompatibleDC: %w", dcErr)
	}
	defer procDeleteDC.Call(memDC)

	bi := bitmapInfo{Header: bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(width),
		Height:      -int32(height),
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}}
	var bits unsafe.Pointer
	hbm, _, dibErr := procCreateDIBSection.Call(memDC,
		uintptr(unsafe.Pointer(&bi)), dibRGBColors,
		uintptr(unsafe.Pointer(&bits)), 0, 0)
	if hbm == 0 || bits == nil {
		return nil, 0, 0, fmt.Errorf("CreateDIBSection: %w", dibErr)
	}
	defer procDeleteObject.Call(hbm)

	prev, _, _ := procSelectObject.Call(memDC, hbm)
	defer procSelectObject.Call(memDC, prev)

	ok, _, _ := procPrintWindow.Call(hwnd, memDC, pwRenderFullContent)
	if ok == 0 {
		blt, _, bltErr := procBitBlt.Call(memDC, 0, 0, uintptr(width), uintptr(height),
			winDC, 0, 0, srcCopy)
		if blt == 0 {
			return nil, 0, 0, fmt.Errorf("PrintWindow and BitBlt both failed: %w", bltErr)
		}
	}

	src := unsafe.Slice((*byte)(bits), width*height*4)
	out := make([]byte, len(src))
	copy(out, src)
	return out, width, height, nil
}

var errWindowGone = errors.New("window no longer exists")
