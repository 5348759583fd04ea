//go:build !windows && !linux

package hotkeys

// PlatformLayout returns the virtual-key layout on platforms without a key
// source so bindings still parse and validate.
func PlatformLayout() Layout { return VirtualKeyLayout }
