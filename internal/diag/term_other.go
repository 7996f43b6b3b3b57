//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package diag

func isTerminal(uintptr) bool { return false }
