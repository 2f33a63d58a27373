// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package agent

import (
	"sync"

	"github.com/bitmark-inc/agenthub/currency"
	"github.com/bitmark-inc/agenthub/currency/ethereum"
	"github.com/bitmark-inc/agenthub/currency/units"
	"github.com/bitmark-inc/agenthub/fault"
)

// Pricing - what one query of an agent costs and who is paid
type Pricing struct {
	Price  string `json:"price"`
	Wallet string `json:"wallet"`
}

// DefaultPricing - prices used when the configuration has none
func DefaultPricing() map[Kind]Pricing {
	return map[Kind]Pricing{
		Weather:    {Price: "0.001", Wallet: "0x1111111111111111111111111111111111111111"},
		Fashion:    {Price: "0.002", Wallet: "0x2222222222222222222222222222222222222222"},
		Activities: {Price: "0.005", Wallet: "0x3333333333333333333333333333333333333333"},
		Logs:       {Price: "0.0005", Wallet: "0x4444444444444444444444444444444444444444"},
	}
}

// Catalogue - current prices, replaceable while running
type Catalogue struct {
	sync.RWMutex
	currency currency.Currency
	prices   map[Kind]Pricing
}

// NewCatalogue - validate and install an initial price list
func NewCatalogue(c currency.Currency, prices map[Kind]Pricing) (*Catalogue, error) {
	cat := &Catalogue{currency: c}
	if err := cat.Replace(prices); nil != err {
		return nil, err
	}
	return cat, nil
}

// Currency - unit of every price
func (cat *Catalogue) Currency() currency.Currency {
	return cat.currency
}

// Get - pricing for one kind
func (cat *Catalogue) Get(kind Kind) (Pricing, bool) {
	cat.RLock()
	defer cat.RUnlock()
	p, ok := cat.prices[kind]
	return p, ok
}

// Replace - swap in a complete new price list
//
// nothing changes unless every entry is valid
func (cat *Catalogue) Replace(prices map[Kind]Pricing) error {
	next := make(map[Kind]Pricing, len(prices))
	for kind, p := range prices {
		if !kind.IsValid() {
			return fault.InvalidAgentKind
		}
		if _, err := units.Parse(p.Price, cat.currency.Decimals()); nil != err {
			return err
		}
		wallet, err := ethereum.ValidateAddress(p.Wallet)
		if nil != err {
			return err
		}
		next[kind] = Pricing{Price: p.Price, Wallet: wallet}
	}

	cat.Lock()
	cat.prices = next
	cat.Unlock()
	return nil
}
