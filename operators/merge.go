// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package operators

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/daniarleagk/paloo_sort/record"
	"github.com/daniarleagk/paloo_sort/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Cursor is a forward only view over a sorted sequence of records.
type Cursor interface {
	// Current returns the record under the cursor, false once exhausted.
	Current() (record.Record, bool)
	Advance() error
	Close() error
}

// ChunkStream is a Cursor over a sorted chunk file.
type ChunkStream struct {
	path       string
	comparator record.Comparator
	reader     *io.LineTempFileReader
	next       func() (string, error, bool)
	stop       func()
	current    record.Record
	valid      bool
	line       int64
	closed     bool
}

var _ Cursor = (*ChunkStream)(nil)

// OpenChunkStream opens path and positions the stream on its first record.
func OpenChunkStream(fs afero.Fs, path string, comparator record.Comparator, bufferSize int) (*ChunkStream, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chunk %s: %w", path, err)
	}
	io.AdviseSequential(f)
	reader := io.NewExactLineTempFileReader(f, bufferSize)
	next, stop := iter.Pull2(reader.All())
	s := &ChunkStream{path: path, comparator: comparator, reader: reader, next: next, stop: stop}
	if err := s.Advance(); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

func (s *ChunkStream) Current() (record.Record, bool) {
	return s.current, s.valid
}

// Advance moves to the next line. Chunk files only hold lines that were
// already accepted, so a line the comparator rejects here is an error.
func (s *ChunkStream) Advance() error {
	if s.closed {
		s.valid = false
		return nil
	}
	line, err, ok := s.next()
	if !ok {
		s.valid = false
		s.current = record.Record{}
		return nil
	}
	if err != nil {
		s.valid = false
		return fmt.Errorf("read chunk %s: %w", s.path, err)
	}
	s.line++
	key, err := s.comparator.Key(line)
	if err != nil {
		s.valid = false
		return fmt.Errorf("chunk %s line %d: %w", s.path, s.line, err)
	}
	s.current = record.Record{Line: line, Key: key}
	s.valid = true
	return nil
}

// Close releases the file, it is safe to call more than once.
func (s *ChunkStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.valid = false
	s.stop()
	return s.reader.Close()
}

// mergeEntry pairs a cursor with its chunk index, the index breaks key ties.
type mergeEntry struct {
	cursor Cursor
	index  int
}

func compareEntries(a, b mergeEntry) int {
	ra, _ := a.cursor.Current()
	rb, _ := b.cursor.Current()
	if c := record.Compare(ra, rb); c != 0 {
		return c
	}
	return cmp.Compare(a.index, b.index)
}

// MergeCursors k-way merges cursors into w and closes every cursor.
// Equal keys are emitted in cursor order. It returns the number of lines written.
func MergeCursors(ctx context.Context, cursors []Cursor, w io.TempFileWriter[string]) (lines int64, err error) {
	defer func() {
		for _, c := range cursors {
			err = errors.Join(err, c.Close())
		}
	}()
	heap := utils.NewMinHeapFunc(len(cursors), compareEntries)
	for i, c := range cursors {
		if _, ok := c.Current(); ok {
			heap.Insert(mergeEntry{cursor: c, index: i})
		} else if err := c.Close(); err != nil {
			return 0, err
		}
	}
	seq := func(yield func(string) bool) {
		for heap.Count() > 0 {
			if lines%ctxCheckInterval == 0 {
				if err = ctx.Err(); err != nil {
					return
				}
			}
			entry, _ := heap.RemoveMin()
			rec, _ := entry.cursor.Current()
			if !yield(rec.Line) {
				return
			}
			lines++
			if err = entry.cursor.Advance(); err != nil {
				return
			}
			if _, ok := entry.cursor.Current(); ok {
				heap.Insert(entry)
			} else if err = entry.cursor.Close(); err != nil {
				return
			}
		}
	}
	if werr := w.WriteSeq(seq); werr != nil {
		return lines, werr
	}
	return lines, err
}

// Merger combines sorted chunk files into the final output.
type Merger struct {
	fs              afero.Fs
	comparator      record.Comparator
	readBufferSize  int
	writeBufferSize int
	logger          *zap.Logger
}

func NewMerger(fs afero.Fs, comparator record.Comparator, readBufferSize, writeBufferSize int, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{
		fs:              fs,
		comparator:      comparator,
		readBufferSize:  readBufferSize,
		writeBufferSize: writeBufferSize,
		logger:          logger,
	}
}

// Merge writes the merge of chunkPaths to outputPath. The output only
// appears once everything was written, a failed merge leaves no output behind.
func (m *Merger) Merge(ctx context.Context, chunkPaths []string, outputPath string) (int64, error) {
	cursors := make([]Cursor, 0, len(chunkPaths))
	closeAll := func() error {
		var errs []error
		for _, c := range cursors {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}
	for _, path := range chunkPaths {
		stream, err := OpenChunkStream(m.fs, path, m.comparator, m.readBufferSize)
		if err != nil {
			return 0, errors.Join(err, closeAll())
		}
		cursors = append(cursors, stream)
	}
	out, err := io.CreateAtomic(m.fs, outputPath)
	if err != nil {
		return 0, errors.Join(err, closeAll())
	}
	writer := io.NewLineTempFileWriter(out.File(), m.writeBufferSize)
	lines, err := MergeCursors(ctx, cursors, writer)
	if err == nil {
		err = writer.Flush()
	}
	if err != nil {
		return lines, errors.Join(err, out.Abort())
	}
	if err := out.Commit(); err != nil {
		return lines, err
	}
	m.logger.Debug("merge finished",
		zap.Int("chunks", len(chunkPaths)),
		zap.Int64("lines", lines),
		zap.String("output", outputPath))
	return lines, nil
}
