// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package io

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/spf13/afero"
)

const DefaultBufferSize = 1 << 20 // 1 MiB

// TempFileWriter interface for writing temporary files
type TempFileWriter[T any] interface {
	WriteSeq(recordSeq iter.Seq[T]) error
	Flush() error
	Close() error
}

// TempFileReader interface for reading temporary files
type TempFileReader[T any] interface {
	All() iter.Seq2[T, error]
	Close() error
}

// LineTempFileWriter streams lines into a file through a bounded buffer.
// Every line is terminated with '\n' regardless of how it was terminated in the input.
type LineTempFileWriter struct {
	file    afero.File
	writer  *bufio.Writer
	written int64
	lines   int64
}

var _ TempFileWriter[string] = (*LineTempFileWriter)(nil)

func NewLineTempFileWriter(file afero.File, bufferSize int) *LineTempFileWriter {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &LineTempFileWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, bufferSize),
	}
}

func (w *LineTempFileWriter) WriteLine(line string) error {
	n, err := w.writer.WriteString(line)
	w.written += int64(n)
	if err != nil {
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return err
	}
	w.written++
	w.lines++
	return nil
}

func (w *LineTempFileWriter) WriteSeq(recordSeq iter.Seq[string]) error {
	for line := range recordSeq {
		if err := w.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (w *LineTempFileWriter) Flush() error {
	return w.writer.Flush()
}

// Close flushes buffered data and closes the file, the file is closed even if the flush fails.
func (w *LineTempFileWriter) Close() error {
	return errors.Join(w.writer.Flush(), w.file.Close())
}

// Written returns the number of bytes handed to the writer, terminators included.
func (w *LineTempFileWriter) Written() int64 {
	return w.written
}

// Lines returns the number of lines written.
func (w *LineTempFileWriter) Lines() int64 {
	return w.lines
}

// LineTempFileReader reads a text file line by line.
// A final line without terminator is still returned.
type LineTempFileReader struct {
	file   afero.File
	reader *bufio.Reader
	trim   func(string) string
}

var _ TempFileReader[string] = (*LineTempFileReader)(nil)

// NewLineTempFileReader reads input text, "\n" and "\r\n" terminators are stripped.
func NewLineTempFileReader(file afero.File, bufferSize int) *LineTempFileReader {
	return newLineTempFileReader(file, bufferSize, TrimEOL)
}

// NewExactLineTempFileReader reads files produced by LineTempFileWriter. Only the
// "\n" the writer appended is stripped, so every line reads back byte for byte.
func NewExactLineTempFileReader(file afero.File, bufferSize int) *LineTempFileReader {
	return newLineTempFileReader(file, bufferSize, trimLF)
}

func newLineTempFileReader(file afero.File, bufferSize int, trim func(string) string) *LineTempFileReader {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &LineTempFileReader{
		file:   file,
		reader: bufio.NewReaderSize(file, bufferSize),
		trim:   trim,
	}
}

// All yields every remaining line. Iteration stops after the first read error.
func (r *LineTempFileReader) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := r.reader.ReadString('\n')
			if len(line) > 0 && (err == nil || errors.Is(err, io.EOF)) {
				if !yield(r.trim(line), nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}
		}
	}
}

func (r *LineTempFileReader) Close() error {
	return r.file.Close()
}

// TrimEOL removes a trailing "\n" or "\r\n". A "\r" not followed by "\n" is kept.
func TrimEOL(line string) string {
	trimmed, ok := strings.CutSuffix(line, "\n")
	if !ok {
		return line
	}
	return strings.TrimSuffix(trimmed, "\r")
}

func trimLF(line string) string {
	return strings.TrimSuffix(line, "\n")
}
