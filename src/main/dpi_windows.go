//go:build windows

package main

import (
	"log"

	"golang.org/x/sys/windows"
)

// enableDPIAwareness makes screen-region coordinates physical pixels on
// scaled displays.
func enableDPIAwareness() {
	const processPerMonitorDPIAware = 2
	setProcessDpiAwareness := windows.NewLazySystemDLL("Shcore.dll").NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		if ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware)); ret != 0 {
			log.Printf("DPI: Failed to set per-monitor DPI awareness, error code: %d", ret)
		}
		return
	}

	setProcessDPIAware := windows.NewLazySystemDLL("user32.dll").NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		log.Printf("DPI: SetProcessDPIAware not available, no DPI awareness set")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
		log.Printf("DPI: Failed to set system DPI awareness")
	}
}
