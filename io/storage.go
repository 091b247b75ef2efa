// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package io

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/afero"
)

const TempFileSuffix string = "tmp"

// TempStorage owns the temporary files of one sort call.
// All files live in a private directory created under the configured base directory,
// every reserved path is tracked so Close can remove whatever is left on any exit path.
type TempStorage struct {
	fs     afero.Fs
	dir    string
	prefix string
	files  map[string]struct{}
	mu     sync.Mutex
	closed bool
}

// NewTempStorage creates the private directory under baseDir.
func NewTempStorage(fs afero.Fs, baseDir string, prefix string) (*TempStorage, error) {
	if err := fs.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp base directory %s: %w", baseDir, err)
	}
	dir, err := afero.TempDir(fs, baseDir, prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("create temp directory in %s: %w", baseDir, err)
	}
	return &TempStorage{
		fs:     fs,
		dir:    dir,
		prefix: prefix,
		files:  make(map[string]struct{}),
	}, nil
}

func (s *TempStorage) StorageId() string {
	return s.dir
}

// Reserve registers and returns the path for the index-th file of the given kind.
// Reserved paths are removed by Close even if the file was never created.
func (s *TempStorage) Reserve(kind string, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("temp storage %s is closed", s.dir)
	}
	// realistically index is 5 decimal digits
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s_%05d.%s", s.prefix, kind, index, TempFileSuffix))
	s.files[path] = struct{}{}
	return path, nil
}

// Create reserves a path and opens a new empty file there for reading and writing.
func (s *TempStorage) Create(kind string, index int) (afero.File, error) {
	path, err := s.Reserve(kind, index)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp file %s: %w", path, err)
	}
	return f, nil
}

// Delete removes a file and stops tracking it. Missing files are not an error.
func (s *TempStorage) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove temp file %s: %w", path, err)
	}
	delete(s.files, path)
	return nil
}

// Files returns the tracked paths in name order.
func (s *TempStorage) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := make([]string, 0, len(s.files))
	for f := range s.files {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// Close removes every tracked file and the private directory.
// It keeps going after a failure and reports all failures joined.
func (s *TempStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for path := range s.files {
		if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove temp file %s: %w", path, err))
			continue
		}
		delete(s.files, path)
	}
	if err := s.fs.RemoveAll(s.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove temp directory %s: %w", s.dir, err))
	}
	return errors.Join(errs...)
}
