//go:build !windows

package platform

// nativeResolution has no portable implementation outside Windows; the size
// must come from configuration.
func nativeResolution() (int, int, bool) {
	return 0, 0, false
}
