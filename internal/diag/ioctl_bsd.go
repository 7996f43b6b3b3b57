//go:build darwin || freebsd || netbsd || openbsd

package diag

import "golang.org/x/sys/unix"

const ioctlReadTermios = unix.TIOCGETA
