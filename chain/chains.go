// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain - names of the ledgers a hub can be configured for
package chain

// names of all chains
const (
	Ethereum    = "ethereum"
	Sepolia     = "sepolia"
	Base        = "base"
	BaseSepolia = "base-sepolia"
	Local       = "local"
)

// Details - fixed parameters of a chain
type Details struct {
	ChainID    int64
	DefaultRPC string
	Testnet    bool
}

var details = map[string]Details{
	Ethereum:    {ChainID: 1, DefaultRPC: "https://eth.llamarpc.com", Testnet: false},
	Sepolia:     {ChainID: 11155111, DefaultRPC: "https://rpc.sepolia.org", Testnet: true},
	Base:        {ChainID: 8453, DefaultRPC: "https://mainnet.base.org", Testnet: false},
	BaseSepolia: {ChainID: 84532, DefaultRPC: "https://sepolia.base.org", Testnet: true},
	Local:       {ChainID: 31337, DefaultRPC: "", Testnet: true},
}

// Valid - validate a chain name
func Valid(name string) bool {
	_, ok := details[name]
	return ok
}

// Get - parameters for a chain name, false if not valid
func Get(name string) (Details, bool) {
	d, ok := details[name]
	return d, ok
}

// IsLocal - local chain uses the built in development ledger
func IsLocal(name string) bool {
	return Local == name
}
