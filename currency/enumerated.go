// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package currency - the settlement tokens that agents can be priced in
package currency

import (
	"fmt"
	"strings"

	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/logger"
)

// Currency - enumeration
type Currency uint64

// possible currency values
const (
	Nothing      Currency = iota // this must be the first value
	USDC         Currency = iota
	Ether        Currency = iota
	maximumValue Currency = iota // this must be the last value
	First        Currency = Nothing + 1
	Last         Currency = maximumValue - 1
	Count        int      = int(Last) // count of currencies
)

// internal conversion
func toString(c Currency) ([]byte, error) {
	switch c {
	case Nothing:
		return []byte{}, nil
	case USDC:
		return []byte("USDC"), nil
	case Ether:
		return []byte("ETH"), nil
	default:
		return []byte{}, fault.InvalidCurrency
	}
}

// convert a string to a currency
func fromString(in string) (Currency, error) {
	switch strings.ToLower(in) {
	case "":
		return Nothing, nil
	case "usdc":
		return USDC, nil
	case "eth", "ether":
		return Ether, nil
	default:
		return Nothing, fault.InvalidCurrency
	}
}

// FromString - parse a currency symbol, empty is not accepted
func FromString(in string) (Currency, error) {
	c, err := fromString(in)
	if nil != err {
		return Nothing, err
	}
	if !c.IsValid() {
		return Nothing, fault.InvalidCurrency
	}
	return c, nil
}

// String - the currency symbol
func (currency Currency) String() string {
	s, err := toString(currency)
	if nil != err {
		logger.Panicf("invalid currency enumeration: %d", currency)
	}
	return string(s)
}

// GoString - enum value and symbol, for debugging
func (currency Currency) GoString() string {
	return fmt.Sprintf("<Currency#%d:%q>", currency, currency.String())
}

// Decimals - number of fractional digits in one whole unit
func (currency Currency) Decimals() int {
	switch currency {
	case USDC:
		return 6
	case Ether:
		return 18
	default:
		logger.Panicf("currency.Decimals: invalid currency: %d", currency)
	}
	return 0
}

// IsValid - valid currency if in range of First to Last
// Nothing is not considered as valid
func (currency Currency) IsValid() bool {
	return currency >= First && currency <= Last
}

// MarshalText - convert a currency into JSON
func (currency Currency) MarshalText() ([]byte, error) {
	return toString(currency)
}

// UnmarshalText - convert currency string to a currency enumeration value from JSON
func (currency *Currency) UnmarshalText(s []byte) error {
	c, err := fromString(string(s))
	if nil != err {
		return err
	}
	*currency = c
	return nil
}
