// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package paloo_sort sorts line oriented text files that may not fit in memory.
//
// Small inputs are sorted in memory. Larger ones are split into line aligned
// chunks that are sorted concurrently and merged back with a k-way merge.
package paloo_sort

import (
	"context"

	"github.com/daniarleagk/paloo_sort/operators"
)

type (
	Options = operators.Options
	Report  = operators.Report
)

// SortFile sorts the lines of inputPath into outputPath using default options.
func SortFile(inputPath, outputPath string) error {
	_, err := SortFileContext(context.Background(), inputPath, outputPath, Options{})
	return err
}

// SortFileContext is SortFile with cancellation and explicit options.
func SortFileContext(ctx context.Context, inputPath, outputPath string, opts Options) (Report, error) {
	sorter, err := operators.NewSorter(opts)
	if err != nil {
		return Report{}, err
	}
	return sorter.SortFile(ctx, inputPath, outputPath)
}
