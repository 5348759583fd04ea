//go:build !windows && !unix

package procutil

import "os/exec"

// PrepareBackground is a no-op where process groups are unavailable.
func PrepareBackground(_ *exec.Cmd) {}
