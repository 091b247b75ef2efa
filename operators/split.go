// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package operators

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	stdio "io"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// how many buffered reads happen between two context checks
const ctxCheckInterval = 1024

// CreateChunkFunc opens a fresh writable file for the chunk with the given index.
type CreateChunkFunc func(index int) (afero.File, error)

// ChunkFile is a chunk written by Split.
type ChunkFile struct {
	Index int
	Path  string
	// FirstLine is the 1-based input line number of the chunk's first line.
	FirstLine int64
}

func chunkPaths(chunks []ChunkFile) []string {
	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.Path
	}
	return paths
}

// Splitter cuts an input file into line aligned chunk files.
type Splitter struct {
	fs         afero.Fs
	bufferSize int
	logger     *zap.Logger
}

func NewSplitter(fs afero.Fs, bufferSize int, logger *zap.Logger) *Splitter {
	if bufferSize <= 0 {
		bufferSize = io.DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Splitter{fs: fs, bufferSize: bufferSize, logger: logger}
}

// Split writes one chunk per plan entry and returns them in order.
// Chunk i ends at the first line boundary at or after sum(plan[0..i]), the last
// chunk takes whatever is left. A chunk may be empty when an earlier one ran
// past its cut point. On error the chunks created so far are still returned.
func (s *Splitter) Split(ctx context.Context, inputPath string, plan []int64, create CreateChunkFunc) ([]ChunkFile, error) {
	chunks := make([]ChunkFile, 0, len(plan))
	if len(plan) == 0 {
		return chunks, nil
	}
	in, err := s.fs.Open(inputPath)
	if err != nil {
		return chunks, err
	}
	defer in.Close()
	io.AdviseSequential(in)
	reader := bufio.NewReaderSize(in, s.bufferSize)
	var boundary, offset int64
	line := int64(1)
	for i, budget := range plan {
		if err := ctx.Err(); err != nil {
			return chunks, err
		}
		boundary += budget
		last := i == len(plan)-1
		out, err := create(i)
		if err != nil {
			return chunks, fmt.Errorf("create chunk %d: %w", i, err)
		}
		chunks = append(chunks, ChunkFile{Index: i, Path: out.Name(), FirstLine: line})
		n, lines, copyErr := s.copyLines(ctx, out, reader, boundary-offset, last)
		offset += n
		line += lines
		if err := errors.Join(copyErr, out.Close()); err != nil {
			return chunks, fmt.Errorf("write chunk %d: %w", i, err)
		}
		s.logger.Debug("chunk written",
			zap.Int("index", i),
			zap.Int64("budget", budget),
			zap.Int64("bytes", n),
			zap.Int64("lines", lines),
			zap.String("path", out.Name()))
	}
	return chunks, nil
}

// copyLines moves whole lines from src to dst until at least budget bytes were
// copied and the last copied line is complete, or until EOF when all is set.
// It returns the bytes copied and the number of terminated lines among them.
func (s *Splitter) copyLines(ctx context.Context, dst stdio.Writer, src *bufio.Reader, budget int64, all bool) (int64, int64, error) {
	w := bufio.NewWriterSize(dst, s.bufferSize)
	var written, lines int64
	midLine := false
	for reads := 1; all || midLine || written < budget; reads++ {
		if reads%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return written, lines, err
			}
		}
		piece, err := src.ReadSlice('\n')
		if len(piece) > 0 {
			n, werr := w.Write(piece)
			written += int64(n)
			if werr != nil {
				return written, lines, werr
			}
			midLine = piece[len(piece)-1] != '\n'
			if !midLine {
				lines++
			}
		}
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, stdio.EOF) {
				break
			}
			return written, lines, err
		}
	}
	return written, lines, w.Flush()
}
