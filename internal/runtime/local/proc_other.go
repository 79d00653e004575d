//go:build !unix

package local

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}
