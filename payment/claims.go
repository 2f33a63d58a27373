// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package payment

import (
	"time"

	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/logger"
)

// defaults for claim lifetimes
const (
	DefaultReserveTTL = 2 * time.Minute
	DefaultSpentTTL   = time.Hour
)

type claimState int

const (
	claimReserved claimState = iota
	claimSpent
)

// Claims - local single use guard for payment ids
//
// a claim is reserved while the paid handler runs; once spent it
// stays held until the ledger itself reports the payment completed
type Claims struct {
	log        *logger.L
	store      *cache.T
	reserveTTL time.Duration
	spentTTL   time.Duration
}

// NewClaims - the store must not be shared with anything else
//
// reserveTTL must cover the longest time a paid handler may run
func NewClaims(log *logger.L, store *cache.T, reserveTTL time.Duration, spentTTL time.Duration) *Claims {
	if reserveTTL <= 0 {
		reserveTTL = DefaultReserveTTL
	}
	if spentTTL <= 0 {
		spentTTL = DefaultSpentTTL
	}
	return &Claims{
		log:        log,
		store:      store,
		reserveTTL: reserveTTL,
		spentTTL:   spentTTL,
	}
}

// Reserve - atomically take the claim for one request
func (c *Claims) Reserve(paymentID string) error {
	if !c.store.Add(paymentID, claimReserved, c.reserveTTL) {
		c.log.Warnf("claim held: %s", paymentID)
		return fault.ClaimAlreadyHeld
	}
	c.log.Debugf("reserved: %s", paymentID)
	return nil
}

// Spend - the paid request succeeded
func (c *Claims) Spend(paymentID string) {
	c.store.SetWithTTL(paymentID, claimSpent, c.spentTTL)
	c.log.Debugf("spent: %s", paymentID)
}

// Release - the paid request failed, the claim may be retried
func (c *Claims) Release(paymentID string) {
	value, ok := c.store.Peek(paymentID)
	if !ok {
		return
	}
	if claimReserved == value.(claimState) {
		c.store.Delete(paymentID)
		c.log.Debugf("released: %s", paymentID)
	}
}

// IsSpent - true after a successful request used the claim
func (c *Claims) IsSpent(paymentID string) bool {
	value, ok := c.store.Peek(paymentID)
	return ok && claimSpent == value.(claimState)
}

// Stats - counters of the underlying store
func (c *Claims) Stats() cache.Stats {
	return c.store.Stats()
}
