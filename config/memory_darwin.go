//go:build darwin

package config

import (
	"math"

	"golang.org/x/sys/unix"
)

func physicalMemory() int64 {
	total, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0
	}
	if total > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(total)
}
