// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.
//go:build linux

package io

import (
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

type fdFile interface {
	Fd() uintptr
}

// AdviseSequential tells the kernel the file is about to be scanned once from start to end.
// Files that are not backed by a descriptor are ignored, the hint is best effort.
func AdviseSequential(file afero.File) {
	if f, ok := file.(fdFile); ok {
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	}
}
