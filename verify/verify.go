// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package verify checks sorted files without loading them into memory.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/daniarleagk/paloo_sort/record"
	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"
)

var (
	ErrNotSorted       = errors.New("paloo_sort: output is not sorted")
	ErrContentMismatch = errors.New("paloo_sort: output does not match input")
)

// Fingerprint is an order independent digest of a multiset of lines.
type Fingerprint struct {
	Count uint64
	Sum   uint64
	Xor   uint64
}

func (f *Fingerprint) Add(line string) {
	h := xxh3.HashString(line)
	f.Count++
	f.Sum += h
	f.Xor ^= h
}

type Summary struct {
	Lines       int64
	Malformed   int64
	Fingerprint Fingerprint
}

// File streams path and fails with ErrNotSorted at the first valid line that
// orders before the previous valid one. Malformed lines are counted and skipped.
func File(ctx context.Context, fs afero.Fs, path string, comparator record.Comparator) (Summary, error) {
	return scan(ctx, fs, path, comparator, true)
}

// Check verifies that output is sorted, holds no malformed lines and carries
// exactly the valid lines of input.
func Check(ctx context.Context, fs afero.Fs, input, output string, comparator record.Comparator) (Summary, error) {
	in, err := scan(ctx, fs, input, comparator, false)
	if err != nil {
		return Summary{}, err
	}
	out, err := File(ctx, fs, output, comparator)
	if err != nil {
		return out, err
	}
	if out.Malformed > 0 {
		return out, fmt.Errorf("%w: %d malformed lines in %s", ErrContentMismatch, out.Malformed, output)
	}
	if in.Fingerprint != out.Fingerprint {
		return out, fmt.Errorf("%w: %d valid input lines, %d output lines", ErrContentMismatch, in.Fingerprint.Count, out.Fingerprint.Count)
	}
	return out, nil
}

func scan(ctx context.Context, fs afero.Fs, path string, comparator record.Comparator, checkOrder bool) (Summary, error) {
	var summary Summary
	f, err := fs.Open(path)
	if err != nil {
		return summary, err
	}
	io.AdviseSequential(f)
	newReader := io.NewLineTempFileReader
	if checkOrder {
		// sorted output holds input lines already stripped of their terminator
		newReader = io.NewExactLineTempFileReader
	}
	reader := newReader(f, io.DefaultBufferSize)
	defer reader.Close()
	var prev record.Key
	seen := false
	for line, err := range reader.All() {
		if err != nil {
			return summary, fmt.Errorf("read %s: %w", path, err)
		}
		summary.Lines++
		if summary.Lines%8192 == 0 {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
		}
		key, err := comparator.Key(line)
		if err != nil {
			summary.Malformed++
			continue
		}
		if checkOrder && seen && key.Compare(prev) < 0 {
			return summary, fmt.Errorf("%w: %s line %d", ErrNotSorted, path, summary.Lines)
		}
		prev, seen = key, true
		summary.Fingerprint.Add(line)
	}
	return summary, nil
}
