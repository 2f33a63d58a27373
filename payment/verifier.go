// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package payment

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/currency"
	"github.com/bitmark-inc/agenthub/currency/ethereum"
	"github.com/bitmark-inc/agenthub/currency/units"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/logger"
)

// DefaultVerificationTTL - how long a successful verification is reused
const DefaultVerificationTTL = 10 * time.Minute

// Verifier - checks payment claims against a ledger
type Verifier struct {
	log      *logger.L
	reader   ledger.Reader
	verified *cache.T
	ttl      time.Duration
	currency currency.Currency
	group    singleflight.Group

	lookups  counter.Counter
	accepted counter.Counter
	rejected counter.Counter
	failures counter.Counter
}

// VerifierStats - counters for the health report
type VerifierStats struct {
	LedgerLookups uint64      `json:"ledgerLookups"`
	Verified      uint64      `json:"verified"`
	Rejected      uint64      `json:"rejected"`
	Failures      uint64      `json:"failures"`
	Cache         cache.Stats `json:"cache"`
}

// shared result of one ledger round trip
type lookupResult struct {
	record *ledger.PaymentRecord
	found  bool
}

// NewVerifier - the verified cache must be dedicated to this verifier
func NewVerifier(log *logger.L, reader ledger.Reader, verified *cache.T, ttl time.Duration, c currency.Currency) *Verifier {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &Verifier{
		log:      log,
		reader:   reader,
		verified: verified,
		ttl:      ttl,
		currency: c,
	}
}

// Currency - the unit minimum amounts are expressed in
func (v *Verifier) Currency() currency.Currency {
	return v.currency
}

// VerifyPayment - full verification of a claim for one resource
//
// never returns an error: ledger failures become a verification_failed
// result so the caller can tell them apart from a bad claim
func (v *Verifier) VerifyPayment(ctx context.Context, paymentID string, expectedRecipient string, minimumAmount string) Result {
	log := v.log

	minimum, err := units.Parse(minimumAmount, v.currency.Decimals())
	if nil != err {
		log.Errorf("minimum amount: %q  error: %s", minimumAmount, err)
		v.failures.Increment()
		return failed(VerificationFailed, messageVerifyFailed+"invalid minimum amount: "+minimumAmount)
	}

	if value, ok := v.verified.Get(paymentID); ok {
		log.Infof("using cached verification: %s", paymentID)
		cached := *value.(*Details)
		return v.count(v.check(&cached, expectedRecipient, minimum, minimumAmount))
	}

	log.Infof("verify: %s  agent: %s  minimum: %s %s", paymentID, expectedRecipient, minimumAmount, v.currency)

	record, found, err := v.lookup(ctx, paymentID)
	if nil != err {
		log.Errorf("verify: %s  error: %s", paymentID, err)
		v.failures.Increment()
		return failed(VerificationFailed, messageVerifyFailed+err.Error())
	}
	if !found {
		return v.count(failed(NotFound, messageNotFound))
	}

	log.Debugf("record: %s  payer: %s  agent: %s  amount: %d  completed: %v", paymentID, record.Payer, record.Agent, record.Amount, record.Completed)

	details := &Details{
		PaymentID: paymentID,
		Payer:     record.Payer,
		Agent:     record.Agent,
		Amount:    units.Format(record.Amount, v.currency.Decimals()),
		Currency:  v.currency.String(),
		Timestamp: record.Timestamp.Unix(),
		Completed: record.Completed,
		baseUnits: record.Amount,
	}

	result := v.check(details, expectedRecipient, minimum, minimumAmount)
	if result.Verified {
		stored := *details
		v.verified.SetWithTTL(paymentID, &stored, v.ttl)
		log.Infof("verified: %s", paymentID)
	}
	return v.count(result)
}

// apply the recipient, amount and replay rules in that order
func (v *Verifier) check(details *Details, expectedRecipient string, minimum uint64, minimumAmount string) Result {
	if !ethereum.SameAddress(details.Agent, expectedRecipient) {
		return failed(WrongRecipient, fmt.Sprintf("Payment is for different agent. Expected: %s, Got: %s", expectedRecipient, details.Agent))
	}

	if details.baseUnits < minimum {
		return failed(InsufficientAmount, fmt.Sprintf("Insufficient payment. Expected: %s %s, Got: %s %s", minimumAmount, v.currency, details.Amount, v.currency))
	}

	if details.Completed {
		return failed(AlreadyUsed, messageAlreadyUsed)
	}

	return Result{
		Verified: true,
		Details:  details,
	}
}

func (v *Verifier) count(result Result) Result {
	if result.Verified {
		v.accepted.Increment()
	} else {
		v.log.Infof("rejected: %s  %s", result.Reason, result.Message)
		v.rejected.Increment()
	}
	return result
}

// one ledger round trip per payment id however many callers are waiting
//
// the shared lookup is not cancelled when one waiting caller gives up;
// the caller stops waiting and the transport's own timeout bounds the call
func (v *Verifier) lookup(ctx context.Context, paymentID string) (*ledger.PaymentRecord, bool, error) {
	shared := context.WithoutCancel(ctx)

	ch := v.group.DoChan(paymentID, func() (interface{}, error) {
		v.lookups.Increment()

		found, err := v.reader.RecordExists(shared, paymentID)
		if nil != err {
			return nil, err
		}
		if !found {
			return lookupResult{}, nil
		}

		record, err := v.reader.GetRecord(shared, paymentID)
		if fault.IsErrNotFound(err) {
			return lookupResult{}, nil
		}
		if nil != err {
			return nil, err
		}
		return lookupResult{record: record, found: true}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, fault.Ledger("verify", ctx.Err())
	case r := <-ch:
		if nil != r.Err {
			return nil, false, r.Err
		}
		l := r.Val.(lookupResult)
		return l.record, l.found, nil
	}
}

// IsPaymentVerified - existence check only
//
// no cache, recipient or amount rules; a ledger failure reports false
func (v *Verifier) IsPaymentVerified(ctx context.Context, paymentID string) bool {
	found, err := v.reader.RecordExists(ctx, paymentID)
	if nil != err {
		v.log.Errorf("quick check: %s  error: %s", paymentID, err)
		return false
	}
	return found
}

// Invalidate - drop a cached verification, e.g. once settled
func (v *Verifier) Invalidate(paymentID string) {
	v.verified.Delete(paymentID)
}

// Stats - counters for the health report
func (v *Verifier) Stats() VerifierStats {
	return VerifierStats{
		LedgerLookups: v.lookups.Uint64(),
		Verified:      v.accepted.Uint64(),
		Rejected:      v.rejected.Uint64(),
		Failures:      v.failures.Uint64(),
		Cache:         v.verified.Stats(),
	}
}
