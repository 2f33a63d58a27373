// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package units - convert decimal token amounts to and from integer
// base units
//
// i.e. with 6 decimals "0.001" is uint64(1000)
package units

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/agenthub/fault"
)

// Parse - convert a decimal string to base units
//
// only digits and a single decimal point are accepted, the value must
// be a whole number of base units
func Parse(amount string, decimals int) (uint64, error) {
	amount = strings.TrimSpace(amount)

	// sign and exponent forms are valid for decimal but not here
	if "" == amount || strings.ContainsAny(amount, "+-eE") {
		return 0, fault.InvalidAmount
	}

	d, err := decimal.NewFromString(amount)
	if nil != err {
		return 0, fault.InvalidAmount
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return 0, fault.InvalidAmount
	}

	v := scaled.BigInt()
	if !v.IsUint64() {
		return 0, fault.AmountOverflow
	}
	return v.Uint64(), nil
}

// Format - convert base units to the shortest decimal string
//
// i.e. with 6 decimals uint64(1500000) is "1.5" and uint64(1000) is "0.001"
func Format(value uint64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), -int32(decimals)).String()
}
