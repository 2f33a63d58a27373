// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"strconv"
	"strings"

	"github.com/bitmark-inc/agenthub/fault"
)

// environment variables that override the file
const (
	EnvRPCURL           = "RPC_URL"
	EnvPaymentProcessor = "PAYMENT_PROCESSOR_ADDRESS"
	EnvCacheTTL         = "CACHE_DEFAULT_TTL"
	EnvSweepInterval    = "CACHE_SWEEP_INTERVAL"
	EnvVerificationTTL  = "PAYMENT_VERIFICATION_TTL"
	EnvPrivateKey       = "PRIVATE_KEY"
	EnvPaymentMode      = "PAYMENT_MODE"
)

// LookupFunc - os.LookupEnv or a test replacement
type LookupFunc func(key string) (string, bool)

func applyEnvironment(options *Configuration, lookup LookupFunc) error {
	strs := []struct {
		name   string
		target *string
	}{
		{EnvRPCURL, &options.Ledger.RPCURL},
		{EnvPaymentProcessor, &options.Ledger.PaymentProcessor},
		{EnvPrivateKey, &options.Ledger.PrivateKey},
		{EnvPaymentMode, &options.PaymentMode},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok && "" != strings.TrimSpace(v) {
			*s.target = strings.TrimSpace(v)
		}
	}

	ints := []struct {
		name   string
		target *int
	}{
		{EnvCacheTTL, &options.Cache.DefaultTTL},
		{EnvSweepInterval, &options.Cache.SweepInterval},
		{EnvVerificationTTL, &options.Cache.VerificationTTL},
	}
	for _, i := range ints {
		v, ok := lookup(i.name)
		if !ok || "" == strings.TrimSpace(v) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if nil != err || n <= 0 {
			return fault.InvalidDuration
		}
		*i.target = n
	}
	return nil
}
