// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/currency"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/fixtures"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/agenthub/ledger/mocks"
	"github.com/bitmark-inc/agenthub/payment"
	"github.com/bitmark-inc/logger"
)

const paymentID = "pay_5f0c6b4e-1d47-4d1b-9a55-0e1f6f2d7c11"

func newVerifier(reader ledger.Reader) *payment.Verifier {
	return payment.NewVerifier(
		logger.New(fixtures.LogCategory),
		reader,
		cache.New("verified", time.Minute),
		time.Minute,
		currency.USDC,
	)
}

func record(agent string, amount uint64, completed bool) *ledger.PaymentRecord {
	return &ledger.PaymentRecord{
		PaymentID: paymentID,
		Payer:     fixtures.Payer,
		Agent:     agent,
		Amount:    amount,
		Timestamp: time.Unix(1700000000, 0),
		Completed: completed,
	}
}

func TestVerifySuccessIsCached(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).Times(1)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.WeatherWallet, 1000, false), nil).Times(1)

	v := newVerifier(r)

	result := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.True(t, result.Verified, "not verified")
	assert.Equal(t, payment.ReasonNone, result.Reason, "wrong reason")
	assert.Equal(t, "0.001", result.Details.Amount, "wrong amount")
	assert.Equal(t, "USDC", result.Details.Currency, "wrong currency")
	assert.Equal(t, fixtures.Payer, result.Details.Payer, "wrong payer")
	assert.Equal(t, int64(1700000000), result.Details.Timestamp, "wrong timestamp")

	// second call must not reach the ledger
	again := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.True(t, again.Verified, "cached result not verified")
	assert.Equal(t, result.Details.PaymentID, again.Details.PaymentID, "wrong cached id")

	stats := v.Stats()
	assert.Equal(t, uint64(1), stats.LedgerLookups, "wrong lookups")
	assert.Equal(t, uint64(2), stats.Verified, "wrong verified count")
	assert.Equal(t, uint64(1), stats.Cache.Hits, "wrong cache hits")
}

func TestVerifyCachedRecheck(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).Times(1)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.WeatherWallet, 1000, false), nil).Times(1)

	v := newVerifier(r)

	result := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.True(t, result.Verified, "not verified")

	// a cached payment cannot be reused for a different or dearer resource
	other := v.VerifyPayment(context.Background(), paymentID, fixtures.FashionWallet, "0.001")
	assert.False(t, other.Verified, "verified for another agent")
	assert.Equal(t, payment.WrongRecipient, other.Reason, "wrong reason")

	dearer := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.002")
	assert.False(t, dearer.Verified, "verified for a dearer resource")
	assert.Equal(t, payment.InsufficientAmount, dearer.Reason, "wrong reason")
}

func TestVerifyNotFoundIsNotCached(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	gomock.InOrder(
		r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(false, nil).Times(2),
		r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).Times(1),
	)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.WeatherWallet, 1000, false), nil).Times(1)

	v := newVerifier(r)

	for i := 0; i < 2; i += 1 {
		result := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
		assert.False(t, result.Verified, "verified")
		assert.Equal(t, payment.NotFound, result.Reason, "wrong reason")
		assert.Equal(t, "Payment not found on-chain", result.Message, "wrong message")
		assert.Nil(t, result.Details, "details on failure")
	}

	// the payment is created after the earlier misses
	result := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.True(t, result.Verified, "not verified once created")
	assert.Equal(t, payment.ReasonNone, result.Reason, "wrong reason")
	if assert.NotNil(t, result.Details, "no details") {
		assert.Equal(t, paymentID, result.Details.PaymentID, "wrong id")
		assert.Equal(t, "0.001", result.Details.Amount, "wrong amount")
	}

	stats := v.Stats()
	assert.Equal(t, uint64(3), stats.LedgerLookups, "wrong lookups")
	assert.Equal(t, uint64(1), stats.Verified, "wrong verified count")
	assert.Equal(t, uint64(2), stats.Rejected, "wrong rejected count")
}

func TestVerifyRecordVanished(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).Times(1)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(nil, fault.PaymentNotFound).Times(1)

	result := newVerifier(r).VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.Equal(t, payment.NotFound, result.Reason, "wrong reason")
}

func TestVerifyRules(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	items := []struct {
		name     string
		record   *ledger.PaymentRecord
		minimum  string
		verified bool
		reason   payment.Reason
		message  string
	}{
		{
			name:     "exact amount",
			record:   record(fixtures.WeatherWallet, 1000, false),
			minimum:  "0.001",
			verified: true,
		},
		{
			name:     "over paid",
			record:   record(fixtures.WeatherWallet, 5000, false),
			minimum:  "0.001",
			verified: true,
		},
		{
			name:    "one unit short",
			record:  record(fixtures.WeatherWallet, 999, false),
			minimum: "0.001",
			reason:  payment.InsufficientAmount,
			message: "Insufficient payment. Expected: 0.001 USDC, Got: 0.000999 USDC",
		},
		{
			name:    "other agent",
			record:  record(fixtures.FashionWallet, 1000, false),
			minimum: "0.001",
			reason:  payment.WrongRecipient,
			message: "Payment is for different agent. Expected: " + fixtures.WeatherWallet + ", Got: " + fixtures.FashionWallet,
		},
		{
			name:    "completed",
			record:  record(fixtures.WeatherWallet, 1000, true),
			minimum: "0.001",
			reason:  payment.AlreadyUsed,
			message: "Payment already used",
		},
		{
			name:    "recipient checked before amount",
			record:  record(fixtures.FashionWallet, 1, true),
			minimum: "0.001",
			reason:  payment.WrongRecipient,
		},
		{
			name:    "amount checked before completion",
			record:  record(fixtures.WeatherWallet, 1, true),
			minimum: "0.001",
			reason:  payment.InsufficientAmount,
		},
		{
			name:    "bad minimum",
			record:  record(fixtures.WeatherWallet, 1000, false),
			minimum: "a lot",
			reason:  payment.VerificationFailed,
		},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			ctl := gomock.NewController(t)
			r := mocks.NewMockReader(ctl)
			r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).MaxTimes(1)
			r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(item.record, nil).MaxTimes(1)

			result := newVerifier(r).VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, item.minimum)
			assert.Equal(t, item.verified, result.Verified, "wrong verified")
			assert.Equal(t, item.reason, result.Reason, "wrong reason")
			if "" != item.message {
				assert.Equal(t, item.message, result.Message, "wrong message")
			}
			if item.verified {
				assert.NotNil(t, result.Details, "missing details")
			} else {
				assert.Nil(t, result.Details, "details on failure")
			}
		})
	}
}

func TestVerifyRecipientIgnoresCase(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).Times(1)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.MixedCaseAgent, 1000, false), nil).Times(1)

	lower := "0xabcdef0123456789abcdef0123456789abcdef01"
	result := newVerifier(r).VerifyPayment(context.Background(), paymentID, lower, "0.001")
	assert.True(t, result.Verified, "case sensitive recipient")
}

func TestVerifyLedgerFailure(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(false, fault.LedgerError("eth_call: connection refused")).Times(1)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).Times(1)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(nil, fault.LedgerError("eth_call: timeout")).Times(1)

	v := newVerifier(r)

	result := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.False(t, result.Verified, "verified")
	assert.True(t, result.IsLedgerFailure(), "not a ledger failure")
	assert.Equal(t, "Verification failed: eth_call: connection refused", result.Message, "wrong message")

	result = v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.Equal(t, payment.VerificationFailed, result.Reason, "wrong reason")
	assert.Equal(t, uint64(2), v.Stats().Failures, "wrong failures")
}

func TestVerifyConcurrentSingleLookup(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	release := make(chan struct{})

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).DoAndReturn(
		func(ctx context.Context, id string) (bool, error) {
			<-release
			return true, nil
		}).Times(1)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.WeatherWallet, 1000, false), nil).Times(1)

	v := newVerifier(r)

	const n = 10
	results := make([]payment.Result, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i += 1 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, result := range results {
		assert.True(t, result.Verified, "caller %d not verified", i)
	}
	assert.Equal(t, uint64(1), v.Stats().LedgerLookups, "duplicate ledger lookups")
}

func TestVerifyCallerCancelled(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	release := make(chan struct{})

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).DoAndReturn(
		func(ctx context.Context, id string) (bool, error) {
			<-release
			return true, nil
		}).Times(1)
	r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.WeatherWallet, 1000, false), nil).Times(1)

	v := newVerifier(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := v.VerifyPayment(ctx, paymentID, fixtures.WeatherWallet, "0.001")
	assert.Equal(t, payment.VerificationFailed, result.Reason, "cancelled caller verified")

	// the shared lookup carries on for later callers
	close(release)
	result = v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.True(t, result.Verified, "later caller not verified")
}

func TestIsPaymentVerified(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	gomock.InOrder(
		r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil),
		r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(false, nil),
		r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(false, fault.LedgerError("down")),
	)

	v := newVerifier(r)
	assert.True(t, v.IsPaymentVerified(context.Background(), paymentID), "existing payment")
	assert.False(t, v.IsPaymentVerified(context.Background(), paymentID), "missing payment")
	assert.False(t, v.IsPaymentVerified(context.Background(), paymentID), "ledger failure")
}

func TestInvalidate(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	r := mocks.NewMockReader(ctl)
	r.EXPECT().RecordExists(gomock.Any(), paymentID).Return(true, nil).Times(2)
	gomock.InOrder(
		r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.WeatherWallet, 1000, false), nil),
		r.EXPECT().GetRecord(gomock.Any(), paymentID).Return(record(fixtures.WeatherWallet, 1000, true), nil),
	)

	v := newVerifier(r)
	result := v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.True(t, result.Verified, "not verified")

	v.Invalidate(paymentID)

	result = v.VerifyPayment(context.Background(), paymentID, fixtures.WeatherWallet, "0.001")
	assert.Equal(t, payment.AlreadyUsed, result.Reason, "settled payment accepted")
}
