// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.

package testutils

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// ErrInjected is returned by FaultyFs when a fault without its own error fires.
var ErrInjected = errors.New("injected fault")

type Op string

const (
	OpOpen      Op = "open" // Open and OpenFile, flag tells them apart
	OpCreate    Op = "create"
	OpRemove    Op = "remove"
	OpRemoveAll Op = "removeall"
	OpRename    Op = "rename"
	OpWrite     Op = "write" // writes to a file opened while the fault matches
)

// Fault describes one failure. Match sees the file name and open flag
// (O_RDONLY for calls without a flag), nil matches everything.
// Times limits how often the fault fires, 0 means every time.
type Fault struct {
	Op    Op
	Match func(name string, flag int) bool
	Err   error
	Times int
	fired int
}

// NameContains matches files whose name contains part.
func NameContains(part string) func(string, int) bool {
	return func(name string, _ int) bool {
		return strings.Contains(name, part)
	}
}

// Truncating matches opens of existing files for rewrite whose name contains part.
func Truncating(part string) func(string, int) bool {
	return func(name string, flag int) bool {
		return flag&os.O_TRUNC != 0 && flag&os.O_CREATE == 0 && strings.Contains(name, part)
	}
}

// FaultyFs wraps an afero.Fs and fails selected operations, for testing purposes.
type FaultyFs struct {
	afero.Fs
	rwMutex sync.RWMutex
	faults  []*Fault
	hits    map[Op]int
}

var _ afero.Fs = (*FaultyFs)(nil)

func NewFaultyFs(base afero.Fs) *FaultyFs {
	return &FaultyFs{Fs: base, hits: make(map[Op]int)}
}

func (f *FaultyFs) Inject(fault Fault) {
	f.rwMutex.Lock()
	defer f.rwMutex.Unlock()
	f.faults = append(f.faults, &fault)
}

// Hits returns how many times faults of op fired.
func (f *FaultyFs) Hits(op Op) int {
	f.rwMutex.RLock()
	defer f.rwMutex.RUnlock()
	return f.hits[op]
}

func (f *FaultyFs) check(op Op, name string, flag int) error {
	f.rwMutex.Lock()
	defer f.rwMutex.Unlock()
	for _, fault := range f.faults {
		if fault.Op != op || (fault.Times > 0 && fault.fired >= fault.Times) {
			continue
		}
		if fault.Match != nil && !fault.Match(name, flag) {
			continue
		}
		fault.fired++
		f.hits[op]++
		err := fault.Err
		if err == nil {
			err = ErrInjected
		}
		return &os.PathError{Op: string(op), Path: name, Err: err}
	}
	return nil
}

func (f *FaultyFs) wrap(file afero.File, name string, flag int) afero.File {
	if err := f.check(OpWrite, name, flag); err != nil {
		return &faultyFile{File: file, err: err}
	}
	return file
}

func (f *FaultyFs) Name() string {
	return "FaultyFs"
}

func (f *FaultyFs) Create(name string) (afero.File, error) {
	if err := f.check(OpCreate, name, os.O_RDWR|os.O_CREATE|os.O_TRUNC); err != nil {
		return nil, err
	}
	file, err := f.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return f.wrap(file, name, os.O_RDWR|os.O_CREATE|os.O_TRUNC), nil
}

func (f *FaultyFs) Open(name string) (afero.File, error) {
	if err := f.check(OpOpen, name, os.O_RDONLY); err != nil {
		return nil, err
	}
	return f.Fs.Open(name)
}

func (f *FaultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	op := OpOpen
	if flag&os.O_CREATE != 0 {
		op = OpCreate
	}
	if err := f.check(op, name, flag); err != nil {
		return nil, err
	}
	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f.wrap(file, name, flag), nil
}

func (f *FaultyFs) Remove(name string) error {
	if err := f.check(OpRemove, name, os.O_RDONLY); err != nil {
		return err
	}
	return f.Fs.Remove(name)
}

func (f *FaultyFs) RemoveAll(path string) error {
	if err := f.check(OpRemoveAll, path, os.O_RDONLY); err != nil {
		return err
	}
	return f.Fs.RemoveAll(path)
}

func (f *FaultyFs) Rename(oldname, newname string) error {
	if err := f.check(OpRename, oldname, os.O_RDONLY); err != nil {
		return err
	}
	return f.Fs.Rename(oldname, newname)
}

type faultyFile struct {
	afero.File
	err error
}

func (f *faultyFile) Write(p []byte) (int, error) {
	return 0, f.err
}

func (f *faultyFile) WriteString(s string) (int, error) {
	return 0, f.err
}

func (f *faultyFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, f.err
}
