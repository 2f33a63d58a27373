// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ethereum - account address checks for EVM chains
package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitmark-inc/agenthub/fault"
)

// ValidateAddress - check a hex address and return its checksummed form
func ValidateAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fault.InvalidAddress
	}
	return common.HexToAddress(address).Hex(), nil
}

// SameAddress - addresses are not case sensitive
func SameAddress(a string, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
