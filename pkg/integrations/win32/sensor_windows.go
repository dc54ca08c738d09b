//go:build windows

package win32

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/procsense/procsense/pkg/fixedtext"
	"github.com/procsense/procsense/pkg/window"
)

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
)

// Sensor implements window.Sensor for the Windows desktop.
type Sensor struct{}

// NewSensor creates a Win32 foreground window sensor.
func NewSensor() *Sensor {
	return &Sensor{}
}

// IsAvailable checks that user32 can be loaded
func (s *Sensor) IsAvailable() bool {
	return procGetWindowTextW.Find() == nil
}

// GetDisplayServer returns "win32"
func (s *Sensor) GetDisplayServer() string {
	return "win32"
}

// CaptureActiveWindow returns the owning pid and caption of the foreground
// window. The caption is read as UTF-16 and bounded to TitleCapacity units.
func (s *Sensor) CaptureActiveWindow() (window.Sample, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return window.NoActiveWindow("foreground window is null")
	}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
		return window.NoActiveWindow("GetWindowThreadProcessId: %v", err)
	}
	if pid == 0 {
		return window.NoActiveWindow("foreground window has no owning process")
	}

	return window.Sample{
		PID:           pid,
		Title:         windowText(hwnd),
		DisplayServer: "win32",
	}, nil
}

// Close cleans up resources
func (s *Sensor) Close() error {
	return nil
}

func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, fixedtext.TitleCapacity)
	n, _, _ := procGetWindowTextW.Call(
		uintptr(hwnd),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
	)
	if int(n) > len(buf) {
		n = uintptr(len(buf))
	}
	return fixedtext.UTF16(buf[:n], fixedtext.TitleCapacity)
}
