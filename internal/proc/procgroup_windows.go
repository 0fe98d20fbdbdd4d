//go:build windows

package proc

import "os/exec"

// setupProcessGroup is a no-op on Windows; the default CommandContext
// cancel kills only the direct child.
func setupProcessGroup(cmd *exec.Cmd) {}
