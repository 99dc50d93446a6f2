//go:build windows

package platform

import "golang.org/x/sys/windows"

const (
	smCXScreen = 0
	smCYScreen = 1
)

var procGetSystemMetrics = windows.NewLazySystemDLL("user32.dll").NewProc("GetSystemMetrics")

func nativeResolution() (int, int, bool) {
	if err := procGetSystemMetrics.Find(); err != nil {
		return 0, 0, false
	}
	w, _, _ := procGetSystemMetrics.Call(smCXScreen)
	h, _, _ := procGetSystemMetrics.Call(smCYScreen)
	if int32(w) <= 0 || int32(h) <= 0 {
		return 0, 0, false
	}
	return int(int32(w)), int(int32(h)), true
}
