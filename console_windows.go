//go:build windows
// +build windows

package main

import "syscall"

// detachConsole hides the attached console window, so a binary built
// without `-ldflags "-H windowsgui"` still starts without one.
func detachConsole(debug bool) {
	if debug {
		return
	}

	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	user32 := syscall.NewLazyDLL("user32.dll")
	procGetConsoleWindow := kernel32.NewProc("GetConsoleWindow")
	procShowWindow := user32.NewProc("ShowWindow")

	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		return
	}

	const SW_HIDE = 0
	procShowWindow.Call(hwnd, SW_HIDE)
}
