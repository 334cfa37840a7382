//go:build !(linux && (amd64 || arm64 || riscv64 || ppc64 || ppc64le || s390x || mips64 || mips64le || loong64)) && !(darwin || freebsd || netbsd || openbsd || dragonfly)

package adjtime

import (
	"errors"
	"time"
)

func Adjtime(offset time.Duration) error {
	return errors.ErrUnsupported
}
