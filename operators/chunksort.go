// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package operators

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"slices"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/daniarleagk/paloo_sort/record"
	"github.com/daniarleagk/paloo_sort/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChunkResult tells how many lines of a chunk were kept and dropped.
type ChunkResult struct {
	Lines   int64
	Skipped int64
}

// ChunkSorter sorts a chunk file in place.
type ChunkSorter struct {
	fs              afero.Fs
	comparator      record.Comparator
	policy          record.Policy
	readBufferSize  int
	writeBufferSize int
	logger          *zap.Logger
}

func NewChunkSorter(fs afero.Fs, comparator record.Comparator, policy record.Policy, readBufferSize, writeBufferSize int, logger *zap.Logger) *ChunkSorter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChunkSorter{
		fs:              fs,
		comparator:      comparator,
		policy:          policy,
		readBufferSize:  readBufferSize,
		writeBufferSize: writeBufferSize,
		logger:          logger,
	}
}

// SortChunk loads the chunk, stable sorts it by key and rewrites the same path.
// Malformed lines are dropped or reported depending on the policy, reported
// positions refer to line numbers in source, the file the chunk was cut from.
func (c *ChunkSorter) SortChunk(ctx context.Context, chunk ChunkFile, source string) (ChunkResult, error) {
	path := chunk.Path
	parser := record.NewParserAt(c.comparator, c.policy, source, chunk.FirstLine)
	records, err := loadRecords(ctx, c.fs, path, parser, c.readBufferSize)
	if err != nil {
		return ChunkResult{}, err
	}
	slices.SortStableFunc(records, record.Compare)
	if err := ctx.Err(); err != nil {
		return ChunkResult{}, err
	}
	f, err := c.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return ChunkResult{}, fmt.Errorf("rewrite chunk %s: %w", path, err)
	}
	writer := io.NewLineTempFileWriter(f, c.writeBufferSize)
	err = writer.WriteSeq(recordLines(records))
	if err = errors.Join(err, writer.Close()); err != nil {
		return ChunkResult{}, fmt.Errorf("rewrite chunk %s: %w", path, err)
	}
	result := ChunkResult{Lines: int64(len(records)), Skipped: parser.Skipped()}
	c.logger.Debug("chunk sorted",
		zap.String("path", path),
		zap.Int64("lines", result.Lines),
		zap.Int64("skipped", result.Skipped))
	return result, nil
}

// SortChunks runs SortChunk over all chunks with at most concurrency at a time.
// The first failure cancels the chunks that have not started yet.
func (c *ChunkSorter) SortChunks(ctx context.Context, chunks []ChunkFile, source string, concurrency int) ([]ChunkResult, error) {
	results := make([]ChunkResult, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			result, err := c.SortChunk(gCtx, chunk, source)
			if err != nil {
				return fmt.Errorf("sort chunk %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// loadRecords reads every line of path through parser.
func loadRecords(ctx context.Context, fs afero.Fs, path string, parser *record.Parser, bufferSize int) ([]record.Record, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	io.AdviseSequential(f)
	reader := io.NewLineTempFileReader(f, bufferSize)
	defer reader.Close()
	var records []record.Record
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		// rough guess of 32 bytes per line keeps early reallocations down
		records = make([]record.Record, 0, min(info.Size()/32, 1<<20))
	}
	var n int
	for line, err := range reader.All() {
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		n++
		if n%(ctxCheckInterval*8) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, ok, err := parser.Parse(line)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func recordLines(records []record.Record) iter.Seq[string] {
	return utils.Map(slices.Values(records), func(r record.Record) string { return r.Line })
}
