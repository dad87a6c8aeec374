//go:build linux

package serialport

import (
	"golang.org/x/sys/unix"
)

type fder interface{ Fd() uintptr }

// flushInput discards bytes received by the tty but not yet read (tcflush TCIFLUSH).
func flushInput(f any) error {
	fd, ok := f.(fder)
	if !ok {
		return ErrUnsupported
	}
	return unix.IoctlSetInt(int(fd.Fd()), unix.TCFLSH, unix.TCIFLUSH)
}

// inputQueued reports how many received bytes are waiting to be read (TIOCINQ).
func inputQueued(f any) (int, error) {
	fd, ok := f.(fder)
	if !ok {
		return 0, ErrUnsupported
	}
	return unix.IoctlGetInt(int(fd.Fd()), unix.TIOCINQ)
}
