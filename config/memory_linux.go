//go:build linux

package config

import (
	"math"

	"golang.org/x/sys/unix"
)

func physicalMemory() int64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	total := uint64(info.Totalram) * uint64(info.Unit) //nolint:unconvert // field widths differ per arch
	if total > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(total)
}
