// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.
//go:build !linux

package operators

import (
	"math"
	"runtime/debug"
)

// SystemAvailableMemory only knows the Go runtime memory limit outside linux, 0 means unknown.
func SystemAvailableMemory() uint64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return 0
	}
	return uint64(limit)
}
