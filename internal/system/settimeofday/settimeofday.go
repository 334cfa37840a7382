//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

// Package settimeofday steps the system clock.
package settimeofday

import (
	"time"

	"golang.org/x/sys/unix"
)

// Settimeofday sets the wall clock to t. Requires CAP_SYS_TIME or root.
func Settimeofday(t time.Time) error {
	timeVal := unix.NsecToTimeval(t.UnixNano())
	return unix.Settimeofday(&timeVal)
}
