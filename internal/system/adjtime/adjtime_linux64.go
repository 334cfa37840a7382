//go:build linux && (amd64 || arm64 || riscv64 || ppc64 || ppc64le || s390x || mips64 || mips64le || loong64)

// Package adjtime slews the system clock.
package adjtime

import (
	"time"

	"golang.org/x/sys/unix"
)

// Adjtime gradually applies offset to the system clock. The kernel limits a
// single-shot slew to +-0.5s.
func Adjtime(offset time.Duration) error {
	buf := &unix.Timex{
		Modes:  unix.ADJ_OFFSET_SINGLESHOT,
		Offset: offset.Microseconds(),
	}
	_, err := unix.Adjtimex(buf)
	return err
}
