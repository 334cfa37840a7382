//go:build darwin || freebsd || netbsd || openbsd || dragonfly

// Package adjtime slews the system clock.
package adjtime

import (
	"time"

	"golang.org/x/sys/unix"
)

// Adjtime gradually applies offset to the system clock.
func Adjtime(offset time.Duration) error {
	timeVal := unix.NsecToTimeval(offset.Nanoseconds())
	return unix.Adjtime(&timeVal, nil)
}
