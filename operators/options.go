// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package operators

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/daniarleagk/paloo_sort/io"
	"github.com/daniarleagk/paloo_sort/record"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrInvalidConfig is returned before any I/O when parameters cannot work.
var ErrInvalidConfig = errors.New("paloo_sort: invalid configuration")

const (
	DefaultInMemoryThreshold int64 = 2_684_354_560 // 2.5 GiB
	DefaultMinChunkSize      int64 = 1 << 20       // 1 MiB
	DefaultMaxChunkSize      int64 = 256 << 20     // 256 MiB
)

// Options configures a Sorter. Zero values select the documented defaults.
type Options struct {
	// InMemoryThreshold is the largest input size sorted wholly in memory.
	// A negative value sends every input, empty ones included, down the external path.
	//
	// The default value is 2.5 GiB.
	InMemoryThreshold int64

	// TargetChunkSize is the byte budget per chunk on the external path.
	// Zero derives it from the input size, see ChunkSize.
	TargetChunkSize int64

	// MinChunkSize is the floor for every chunk budget but the last.
	//
	// The default value is 1 MiB.
	MinChunkSize int64

	// MaxChunkSize caps a derived chunk size. It does not apply to an explicit TargetChunkSize.
	//
	// The default value is 256 MiB.
	MaxChunkSize int64

	// Concurrency is the number of chunks sorted at the same time.
	//
	// The default value is runtime.GOMAXPROCS(0).
	Concurrency int

	// Comparator derives sort keys, the default is record.Lexicographic.
	Comparator record.Comparator

	// Policy decides what happens with lines the comparator rejects.
	Policy record.Policy

	// TempDir is where the per call temp directory is created, the default is os.TempDir().
	TempDir string

	// CopyBufferSize is the read buffer used when scanning input and chunk files.
	CopyBufferSize int

	// WriteBufferSize is the write buffer used for chunk and output files.
	WriteBufferSize int

	// AvailableMemory estimates free memory in bytes, 0 means unknown.
	// The default probes the platform, see SystemAvailableMemory.
	AvailableMemory func() uint64

	// Fs is the filesystem all files are read from and written to.
	//
	// The default value is afero.NewOsFs().
	Fs afero.Fs

	// Logger is used to write log messages.
	//
	// The default value is zap.NewNop().
	Logger *zap.Logger
}

func (o *Options) validate() error {
	switch {
	case o.TargetChunkSize < 0:
		return fmt.Errorf("%w: negative target chunk size %d", ErrInvalidConfig, o.TargetChunkSize)
	case o.MinChunkSize < 0:
		return fmt.Errorf("%w: negative minimum chunk size %d", ErrInvalidConfig, o.MinChunkSize)
	case o.MaxChunkSize < 0:
		return fmt.Errorf("%w: negative maximum chunk size %d", ErrInvalidConfig, o.MaxChunkSize)
	case o.MinChunkSize > 0 && o.MaxChunkSize > 0 && o.MinChunkSize > o.MaxChunkSize:
		return fmt.Errorf("%w: minimum chunk size %d exceeds maximum %d", ErrInvalidConfig, o.MinChunkSize, o.MaxChunkSize)
	case o.Concurrency < 0:
		return fmt.Errorf("%w: negative concurrency %d", ErrInvalidConfig, o.Concurrency)
	case o.CopyBufferSize < 0 || o.WriteBufferSize < 0:
		return fmt.Errorf("%w: negative buffer size", ErrInvalidConfig)
	case o.Policy != record.SkipMalformed && o.Policy != record.FailOnMalformed:
		return fmt.Errorf("%w: unknown malformed record policy %v", ErrInvalidConfig, o.Policy)
	}
	return nil
}

func (o *Options) ensureDefaults() {
	if o.InMemoryThreshold == 0 {
		o.InMemoryThreshold = DefaultInMemoryThreshold
	}
	if o.MinChunkSize == 0 {
		o.MinChunkSize = DefaultMinChunkSize
	}
	if o.MaxChunkSize == 0 {
		o.MaxChunkSize = max(DefaultMaxChunkSize, o.MinChunkSize)
	}
	if o.Concurrency == 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	if o.Comparator == nil {
		o.Comparator = record.Lexicographic{}
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	if o.CopyBufferSize == 0 {
		o.CopyBufferSize = io.DefaultBufferSize
	}
	if o.WriteBufferSize == 0 {
		o.WriteBufferSize = io.DefaultBufferSize
	}
	if o.AvailableMemory == nil {
		o.AvailableMemory = SystemAvailableMemory
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}
