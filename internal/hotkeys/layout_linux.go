//go:build linux

package hotkeys

// PlatformLayout returns the layout matching the platform key source.
func PlatformLayout() Layout { return EvdevLayout }
