// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DefaultFileMode is applied to a committed output that replaces no existing file.
const DefaultFileMode os.FileMode = 0o644

// AtomicFile collects output in a hidden sibling of the destination and renames it into place on Commit.
// Readers of the destination never observe a partially written file.
type AtomicFile struct {
	fs      afero.Fs
	file    afero.File
	tmpPath string
	dest    string
	done    bool
}

func CreateAtomic(fs afero.Fs, dest string) (*AtomicFile, error) {
	dir := filepath.Dir(dest)
	f, err := afero.TempFile(fs, dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create output file in %s: %w", dir, err)
	}
	return &AtomicFile{fs: fs, file: f, tmpPath: f.Name(), dest: dest}, nil
}

// File exposes the underlying temporary file for writing.
func (a *AtomicFile) File() afero.File {
	return a.file
}

// Commit syncs and closes the temporary file and renames it over the destination.
// The result keeps the permissions of the file it replaces, or DefaultFileMode.
func (a *AtomicFile) Commit() error {
	if a.done {
		return fmt.Errorf("output %s already finalized", a.dest)
	}
	a.done = true
	if err := a.file.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync output: %w", err), a.file.Close(), a.fs.Remove(a.tmpPath))
	}
	if err := a.file.Close(); err != nil {
		return errors.Join(fmt.Errorf("close output: %w", err), a.fs.Remove(a.tmpPath))
	}
	mode := DefaultFileMode
	if info, err := a.fs.Stat(a.dest); err == nil {
		mode = info.Mode().Perm()
	}
	if err := a.fs.Chmod(a.tmpPath, mode); err != nil {
		return errors.Join(fmt.Errorf("chmod output: %w", err), a.fs.Remove(a.tmpPath))
	}
	if err := a.fs.Rename(a.tmpPath, a.dest); err != nil {
		return errors.Join(fmt.Errorf("rename output to %s: %w", a.dest, err), a.fs.Remove(a.tmpPath))
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit, so it is safe to defer.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	return errors.Join(a.file.Close(), a.fs.Remove(a.tmpPath))
}
