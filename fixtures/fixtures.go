// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fixtures - shared setup for package tests
package fixtures

import (
	"fmt"
	"os"

	"github.com/bitmark-inc/logger"
)

const (
	dir         = "testing"
	LogCategory = "testing"
)

// well known addresses for tests
const (
	Payer          = "0x9f8e7d6c5b4a39281706f5e4d3c2b1a098765432"
	WeatherWallet  = "0x1111111111111111111111111111111111111111"
	FashionWallet  = "0x2222222222222222222222222222222222222222"
	MixedCaseAgent = "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	ProcessorAddr  = "0x97CA3e550b7b6091A652645e89f98946Cda5Ac08"
)

// SetupTestLogger - start a file logger in a scratch directory
func SetupTestLogger() {
	removeFiles()
	_ = os.Mkdir(dir, 0700)

	logging := logger.Configuration{
		Directory: dir,
		File:      fmt.Sprintf("%s.log", LogCategory),
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

// TeardownTestLogger - stop logging and remove the scratch directory
func TeardownTestLogger() {
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	err := os.RemoveAll(dir)
	if nil != err {
		fmt.Println("remove dir with error: ", err)
	}
}
