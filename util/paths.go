// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package util - small file and HTTP helpers shared by the daemon and client
package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/agenthub/fault"
)

// EnsureAbsolute - relative paths are taken from directory
func EnsureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}

// EnsureFileExists - true only for an existing non-directory
func EnsureFileExists(name string) bool {
	info, err := os.Stat(name)
	return nil == err && !info.IsDir()
}

// EnsureDirectory - check a directory exists, optionally creating it
// and any missing parents
func EnsureDirectory(name string, create bool) error {
	info, err := os.Stat(name)
	switch {
	case nil == err && info.IsDir():
		return nil
	case nil == err:
		return fmt.Errorf("path: %q is not a directory: %w", name, fault.InvalidDirectory)
	case os.IsNotExist(err) && create:
		return os.MkdirAll(name, 0700)
	default:
		return err
	}
}
