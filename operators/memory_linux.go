// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.
//go:build linux

package operators

import (
	"runtime/debug"

	"golang.org/x/sys/unix"
)

// SystemAvailableMemory returns free plus buffer RAM as reported by sysinfo(2),
// lowered to the Go runtime memory limit when one is set. 0 means unknown.
func SystemAvailableMemory() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return runtimeMemoryLimit()
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	avail := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit
	if limit := runtimeMemoryLimit(); limit > 0 && limit < avail {
		return limit
	}
	return avail
}

// runtimeMemoryLimit reads GOMEMLIMIT without changing it, 0 if unlimited.
func runtimeMemoryLimit() uint64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == int64(^uint64(0)>>1) {
		return 0
	}
	return uint64(limit)
}
