// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

// Package operators holds the external merge sort pipeline: plan, split, sort chunks, merge.
package operators

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/daniarleagk/paloo_sort/record"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const tempPrefix = "paloo_sort"

// Mode tells which path a sort took.
type Mode string

const (
	ModeInMemory Mode = "in-memory"
	ModeExternal Mode = "external"
)

// Report summarizes a finished sort.
type Report struct {
	Mode       Mode
	InputBytes int64
	// Chunks and ChunkSize are zero for in-memory sorts.
	Chunks    int
	ChunkSize int64
	Lines     int64
	Skipped   int64
	Duration  time.Duration
}

// Sorter sorts text files by line, in memory when the input is small enough
// and with an external merge sort otherwise.
type Sorter struct {
	opts        Options
	splitter    *Splitter
	chunkSorter *ChunkSorter
	merger      *Merger
}

func NewSorter(opts Options) (*Sorter, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.ensureDefaults()
	return &Sorter{
		opts:        opts,
		splitter:    NewSplitter(opts.Fs, opts.CopyBufferSize, opts.Logger),
		chunkSorter: NewChunkSorter(opts.Fs, opts.Comparator, opts.Policy, opts.CopyBufferSize, opts.WriteBufferSize, opts.Logger),
		merger:      NewMerger(opts.Fs, opts.Comparator, opts.CopyBufferSize, opts.WriteBufferSize, opts.Logger),
	}, nil
}

// SortFile writes the sorted lines of inputPath to outputPath.
// outputPath only changes when the sort succeeds. Temporary files are removed
// on every path, a failed removal is logged and does not fail the sort.
func (s *Sorter) SortFile(ctx context.Context, inputPath, outputPath string) (Report, error) {
	start := time.Now()
	if outputPath == "" {
		return Report{}, fmt.Errorf("%w: empty output path", ErrInvalidConfig)
	}
	info, err := s.opts.Fs.Stat(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, fmt.Errorf("%w: input %s: %w", ErrInvalidConfig, inputPath, err)
		}
		return Report{}, fmt.Errorf("stat input %s: %w", inputPath, err)
	}
	if info.IsDir() {
		return Report{}, fmt.Errorf("%w: input %s is a directory", ErrInvalidConfig, inputPath)
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	logger := s.opts.Logger.With(zap.String("input", inputPath), zap.String("output", outputPath))
	report := Report{InputBytes: info.Size()}
	if info.Size() <= s.opts.InMemoryThreshold {
		report.Mode = ModeInMemory
		err = s.sortInMemory(ctx, inputPath, outputPath, &report)
	} else {
		report.Mode = ModeExternal
		err = s.sortExternal(ctx, inputPath, outputPath, &report, logger)
	}
	report.Duration = time.Since(start)
	if err != nil {
		logger.Error("sort failed", zap.String("mode", string(report.Mode)), zap.Error(err))
		return report, err
	}
	logger.Info("sort finished",
		zap.String("mode", string(report.Mode)),
		zap.Int64("bytes", report.InputBytes),
		zap.Int("chunks", report.Chunks),
		zap.Int64("lines", report.Lines),
		zap.Int64("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (s *Sorter) sortInMemory(ctx context.Context, inputPath, outputPath string, report *Report) error {
	parser := record.NewParser(s.opts.Comparator, s.opts.Policy, inputPath)
	records, err := loadRecords(ctx, s.opts.Fs, inputPath, parser, s.opts.CopyBufferSize)
	if err != nil {
		return err
	}
	slices.SortStableFunc(records, record.Compare)
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := io.CreateAtomic(s.opts.Fs, outputPath)
	if err != nil {
		return err
	}
	writer := io.NewLineTempFileWriter(out.File(), s.opts.WriteBufferSize)
	if err := errors.Join(writer.WriteSeq(recordLines(records)), writer.Flush()); err != nil {
		return errors.Join(fmt.Errorf("write output %s: %w", outputPath, err), out.Abort())
	}
	if err := out.Commit(); err != nil {
		return err
	}
	report.Lines = writer.Lines()
	report.Skipped = parser.Skipped()
	return nil
}

func (s *Sorter) sortExternal(ctx context.Context, inputPath, outputPath string, report *Report, logger *zap.Logger) error {
	storage, err := io.NewTempStorage(s.opts.Fs, s.opts.TempDir, tempPrefix)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Warn("temp cleanup failed", zap.String("dir", storage.StorageId()), zap.Error(cerr))
		}
	}()
	stage := time.Now()
	report.ChunkSize = ChunkSize(report.InputBytes, &s.opts)
	plan, err := Plan(report.InputBytes, report.ChunkSize, s.opts.MinChunkSize)
	if err != nil {
		return err
	}
	logger.Info("plan",
		zap.Int64("chunk_size", report.ChunkSize),
		zap.Int("chunks", len(plan)),
		zap.String("temp_dir", storage.StorageId()))

	chunks, err := s.splitter.Split(ctx, inputPath, plan, func(index int) (afero.File, error) {
		return storage.Create("chunk", index)
	})
	if err != nil {
		return fmt.Errorf("split %s: %w", inputPath, err)
	}
	report.Chunks = len(chunks)
	logger.Info("split", zap.Int("chunks", len(chunks)), zap.Duration("took", time.Since(stage)))

	stage = time.Now()
	results, err := s.chunkSorter.SortChunks(ctx, chunks, inputPath, s.opts.Concurrency)
	if err != nil {
		return err
	}
	for _, r := range results {
		report.Skipped += r.Skipped
	}
	logger.Info("sort chunks",
		zap.Int("workers", s.opts.Concurrency),
		zap.Int64("skipped", report.Skipped),
		zap.Duration("took", time.Since(stage)))

	stage = time.Now()
	paths := chunkPaths(chunks)
	lines, err := s.merger.Merge(ctx, paths, outputPath)
	if err != nil {
		return fmt.Errorf("merge into %s: %w", outputPath, err)
	}
	report.Lines = lines
	logger.Info("merge", zap.Int64("lines", lines), zap.Duration("took", time.Since(stage)))
	for _, path := range paths {
		if derr := storage.Delete(path); derr != nil {
			logger.Warn("chunk removal failed", zap.String("path", path), zap.Error(derr))
		}
	}
	return nil
}
