// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd
// +build linux darwin dragonfly freebsd netbsd openbsd

package terminal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// RawMode holds the terminal settings to restore once raw input is no
// longer needed
type RawMode struct {
	fd      int
	restore unix.Termios
}

// Puts fd into non-canonical, non-echoing mode where reads return
// immediately, even with no input pending
func EnterRaw(fd int) (*RawMode, error) {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)

	if err != nil {
		return nil, fmt.Errorf("reading terminal attributes: %w", err)
	}

	raw := &RawMode{fd: fd, restore: *termios}
	termstate := *termios

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR | unix.ICRNL
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	termstate.Cc[unix.VMIN] = 0
	termstate.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &termstate); err != nil {
		return nil, fmt.Errorf("setting terminal attributes: %w", err)
	}

	return raw, nil
}

func (raw *RawMode) Restore() error {
	if err := unix.IoctlSetTermios(
		raw.fd, ioctlSetTermios, &raw.restore,
	); err != nil {
		return fmt.Errorf("restoring terminal attributes: %w", err)
	}

	return nil
}
