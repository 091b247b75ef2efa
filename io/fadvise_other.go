// Copyright (c) 2025 Daniar Achakeev
// This source code is licensed under the MIT license found in the LICENSE.txt file in the root directory of this source tree.
//go:build !linux

package io

import "github.com/spf13/afero"

// AdviseSequential is a no-op outside linux.
func AdviseSequential(file afero.File) {}
