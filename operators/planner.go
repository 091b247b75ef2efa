// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package operators

import (
	"fmt"
	"math"
)

// Plan partitions fileSize bytes into chunk budgets of roughly targetChunkSize.
// The budgets sum to fileSize exactly, none is zero, and all but the last are
// at least minChunkSize. A zero sized file yields an empty plan.
func Plan(fileSize, targetChunkSize, minChunkSize int64) ([]int64, error) {
	if targetChunkSize <= 0 {
		return nil, fmt.Errorf("%w: target chunk size must be positive, got %d", ErrInvalidConfig, targetChunkSize)
	}
	if fileSize < 0 {
		return nil, fmt.Errorf("%w: negative file size %d", ErrInvalidConfig, fileSize)
	}
	if fileSize == 0 {
		return []int64{}, nil
	}
	if fileSize <= targetChunkSize {
		return []int64{fileSize}, nil
	}
	count := ceilDiv(fileSize, targetChunkSize)
	average := max(ceilDiv(fileSize, count), minChunkSize)
	plan := make([]int64, 0, count)
	remaining := fileSize
	for int64(len(plan)) < count-1 && remaining > 0 {
		budget := min(average, remaining)
		plan = append(plan, budget)
		remaining -= budget
	}
	if remaining > 0 {
		plan = append(plan, remaining)
	}
	return plan, nil
}

// ChunkSize picks the chunk budget for a file of fileSize bytes.
// An explicit TargetChunkSize wins, otherwise 1% of the file clamped to
// [MinChunkSize, MaxChunkSize]. The result is then halved while it exceeds
// AvailableMemory/(2*Concurrency), never going under MinChunkSize.
func ChunkSize(fileSize int64, opts *Options) int64 {
	target := opts.TargetChunkSize
	if target <= 0 {
		target = min(max(fileSize/100, opts.MinChunkSize), opts.MaxChunkSize)
	}
	if opts.AvailableMemory == nil {
		return target
	}
	avail := opts.AvailableMemory()
	if avail == 0 {
		return target
	}
	ceiling := int64(min(avail/uint64(2*max(opts.Concurrency, 1)), math.MaxInt64))
	for target > ceiling && target/2 >= opts.MinChunkSize {
		target /= 2
	}
	return target
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
