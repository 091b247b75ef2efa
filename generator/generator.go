// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package generator writes synthetic "<id>. <word>" test files.
package generator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	stdio "io"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/spf13/afero"
)

var DefaultWords = []string{"Apple", "Banana", "Cherry", "Flower", "Something"}

type Options struct {
	// Size is the target file size in bytes. Generation stops at the first line
	// that reaches it, so the result may exceed Size by less than one line.
	Size int64
	// Repeat is how many times every generated line is written in a row, at least 1.
	Repeat int
	Words  []string
	// Seed makes the output reproducible, 0 picks a time based seed.
	Seed int64
	// MaxID bounds ids to [0, MaxID), the default is math.MaxInt32.
	MaxID int64
	// BufferSize of the writer, the default is io.DefaultBufferSize.
	BufferSize int
}

type Stats struct {
	Bytes int64
	Lines int64
}

func (o *Options) ensureDefaults() error {
	if o.Size < 0 {
		return fmt.Errorf("negative size %d", o.Size)
	}
	if o.MaxID < 0 {
		return fmt.Errorf("negative max id %d", o.MaxID)
	}
	if o.Repeat < 1 {
		o.Repeat = 1
	}
	if len(o.Words) == 0 {
		o.Words = DefaultWords
	}
	for _, w := range o.Words {
		if strings.TrimSpace(w) == "" || strings.ContainsAny(w, "\r\n") {
			return fmt.Errorf("invalid word %q", w)
		}
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.MaxID == 0 {
		o.MaxID = math.MaxInt32
	}
	if o.BufferSize <= 0 {
		o.BufferSize = io.DefaultBufferSize
	}
	return nil
}

// Generate writes lines to w until opts.Size bytes were produced.
func Generate(ctx context.Context, w stdio.Writer, opts Options) (Stats, error) {
	var stats Stats
	if err := opts.ensureDefaults(); err != nil {
		return stats, err
	}
	r := rand.New(rand.NewSource(opts.Seed))
	bw := bufio.NewWriterSize(w, opts.BufferSize)
	line := make([]byte, 0, 64)
	for stats.Bytes < opts.Size {
		if stats.Lines%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		line = strconv.AppendInt(line[:0], r.Int63n(opts.MaxID), 10)
		line = append(line, ". "...)
		line = append(line, opts.Words[r.Intn(len(opts.Words))]...)
		line = append(line, '\n')
		for range opts.Repeat {
			n, err := bw.Write(line)
			stats.Bytes += int64(n)
			if err != nil {
				return stats, err
			}
			stats.Lines++
			if stats.Bytes >= opts.Size {
				break
			}
		}
	}
	return stats, bw.Flush()
}

// GenerateFile writes a generated file to path, replacing it only on success.
func GenerateFile(ctx context.Context, fs afero.Fs, path string, opts Options) (Stats, error) {
	out, err := io.CreateAtomic(fs, path)
	if err != nil {
		return Stats{}, err
	}
	stats, err := Generate(ctx, out.File(), opts)
	if err != nil {
		return stats, errors.Join(err, out.Abort())
	}
	return stats, out.Commit()
}
