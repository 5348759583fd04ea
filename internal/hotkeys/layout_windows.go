//go:build windows

package hotkeys

// PlatformLayout returns the layout matching the platform key source.
func PlatformLayout() Layout { return VirtualKeyLayout }
