// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package admission_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/fixtures"
	"github.com/bitmark-inc/agenthub/payment"
	"github.com/bitmark-inc/agenthub/rpc/admission"
	"github.com/bitmark-inc/logger"
)

const claim = "pay_0b9c4d3e-2f1a-4c5b-8d7e-6f5a4b3c2d1e"

// answers from a fixed table and remembers the calls
type fakeVerifier struct {
	sync.Mutex
	results map[string]payment.Result
	calls   []string
}

func (f *fakeVerifier) VerifyPayment(ctx context.Context, paymentID string, recipient string, minimum string) payment.Result {
	f.Lock()
	defer f.Unlock()
	f.calls = append(f.calls, paymentID+"|"+recipient+"|"+minimum)
	if result, ok := f.results[paymentID]; ok {
		return result
	}
	return payment.Result{Reason: payment.NotFound, Message: "Payment not found on-chain"}
}

type fakeDispatcher struct {
	sync.Mutex
	ids []string
}

func (f *fakeDispatcher) Dispatch(paymentID string) error {
	f.Lock()
	f.ids = append(f.ids, paymentID)
	f.Unlock()
	return nil
}

func weather() admission.Resource {
	return admission.Resource{
		Recipient: fixtures.WeatherWallet,
		Price:     "0.001",
		Currency:  "USDC",
		Network:   "base-sepolia",
		Processor: fixtures.ProcessorAddr,
	}
}

func verified() payment.Result {
	return payment.Result{
		Verified: true,
		Details: &payment.Details{
			PaymentID: claim,
			Payer:     fixtures.Payer,
			Agent:     fixtures.WeatherWallet,
			Amount:    "0.001",
			Currency:  "USDC",
		},
	}
}

// echoes the admitted payment and the request body
func paidHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		details, ok := admission.DetailsFrom(r.Context())
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"admitted": ok,
			"payment":  details,
			"body":     string(body),
		})
	})
}

func serve(h http.Handler, header string, body string) (int, map[string]interface{}) {
	r := httptest.NewRequest(http.MethodPost, "/agents/weather/query", strings.NewReader(body))
	if "" != header {
		r.Header.Set(admission.HeaderName, header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	reply := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &reply)
	return w.Code, reply
}

func newClaims() *payment.Claims {
	return payment.NewClaims(logger.New(fixtures.LogCategory), cache.New("claims", time.Minute), time.Minute, time.Minute)
}

func TestMissingClaim(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	v := &fakeVerifier{}
	g := admission.New(logger.New(fixtures.LogCategory), v, admission.Options{})
	h := g.Require(weather, paidHandler(http.StatusOK))

	for _, item := range []struct{ header, body string }{
		{"", `{"city":"tokyo"}`},
		{"undefined", `{"city":"tokyo"}`},
		{"", `{"city":"tokyo","paymentId":"undefined"}`},
		{"", `{"paymentId":42}`},
		{"", `not json`},
		{"", ``},
	} {
		code, reply := serve(h, item.header, item.body)
		assert.Equal(t, http.StatusPaymentRequired, code, "wrong status for: %q %q", item.header, item.body)
		assert.Equal(t, "Payment Required", reply["error"], "wrong error")
		assert.Equal(t, admission.CodeMissing, reply["code"], "wrong code")

		terms, ok := reply["payment"].(map[string]interface{})
		if assert.True(t, ok, "missing payment terms") {
			assert.Equal(t, fixtures.WeatherWallet, terms["agentAddress"], "wrong agent address")
			assert.Equal(t, "0.001", terms["amount"], "wrong amount")
			assert.Equal(t, "USDC", terms["currency"], "wrong currency")
			assert.Equal(t, "base-sepolia", terms["network"], "wrong network")
			assert.Equal(t, fixtures.ProcessorAddr, terms["paymentProcessorAddress"], "wrong processor")
		}
	}

	assert.Empty(t, v.calls, "verifier called without a claim")
	assert.Equal(t, uint64(6), g.Stats().Missing, "wrong missing count")
}

func TestInvalidClaim(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	v := &fakeVerifier{}
	g := admission.New(logger.New(fixtures.LogCategory), v, admission.Options{})
	h := g.Require(weather, paidHandler(http.StatusOK))

	code, reply := serve(h, claim, "")
	assert.Equal(t, http.StatusPaymentRequired, code, "wrong status")
	assert.Equal(t, admission.CodeInvalid, reply["code"], "wrong code")
	assert.Equal(t, "not_found", reply["reason"], "wrong reason")
	assert.Equal(t, "Payment not found on-chain", reply["message"], "wrong message")

	assert.Equal(t, []string{claim + "|" + fixtures.WeatherWallet + "|0.001"}, v.calls, "wrong verifier call")
}

func TestLedgerFailure(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	v := &fakeVerifier{
		results: map[string]payment.Result{
			claim: {Reason: payment.VerificationFailed, Message: "Verification failed: connection refused"},
		},
	}
	g := admission.New(logger.New(fixtures.LogCategory), v, admission.Options{})
	h := g.Require(weather, paidHandler(http.StatusOK))

	code, reply := serve(h, claim, "")
	assert.Equal(t, http.StatusInternalServerError, code, "wrong status")
	assert.Equal(t, "Verification failed: connection refused", reply["message"], "wrong message")
	assert.Equal(t, uint64(1), g.Stats().Failed, "wrong failed count")
}

func TestAdmitSpendsAndSettles(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	v := &fakeVerifier{results: map[string]payment.Result{claim: verified()}}
	claims := newClaims()
	d := &fakeDispatcher{}
	g := admission.New(logger.New(fixtures.LogCategory), v, admission.Options{Claims: claims, Settlement: d})
	h := g.Require(weather, paidHandler(http.StatusOK))

	code, reply := serve(h, "", `{"city":"tokyo","paymentId":"`+claim+`"}`)
	assert.Equal(t, http.StatusOK, code, "wrong status")
	assert.Equal(t, true, reply["admitted"], "details not on context")
	assert.Contains(t, reply["body"], "tokyo", "body not restored")

	p, ok := reply["payment"].(map[string]interface{})
	if assert.True(t, ok, "missing payment") {
		assert.Equal(t, fixtures.Payer, p["payer"], "wrong payer")
		assert.Equal(t, "0.001", p["amount"], "wrong amount")
	}

	assert.True(t, claims.IsSpent(claim), "claim not spent")
	assert.Equal(t, []string{claim}, d.ids, "settlement not dispatched")

	// the verifier still says yes but the claim is spent
	code, reply = serve(h, claim, "")
	assert.Equal(t, http.StatusPaymentRequired, code, "replay admitted")
	assert.Equal(t, admission.CodeInvalid, reply["code"], "wrong code")
	assert.Equal(t, "already_used", reply["reason"], "wrong reason")
	assert.Equal(t, []string{claim}, d.ids, "replay settled")
}

func TestHeaderTakesPrecedence(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	v := &fakeVerifier{results: map[string]payment.Result{claim: verified()}}
	g := admission.New(logger.New(fixtures.LogCategory), v, admission.Options{})
	h := g.Require(weather, paidHandler(http.StatusOK))

	code, _ := serve(h, claim, `{"paymentId":"pay_other"}`)
	assert.Equal(t, http.StatusOK, code, "wrong status")
	assert.Equal(t, []string{claim + "|" + fixtures.WeatherWallet + "|0.001"}, v.calls, "body claim used")
}

func TestHandlerFailureReleases(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	v := &fakeVerifier{results: map[string]payment.Result{claim: verified()}}
	claims := newClaims()
	d := &fakeDispatcher{}
	g := admission.New(logger.New(fixtures.LogCategory), v, admission.Options{Claims: claims, Settlement: d})

	code, _ := serve(g.Require(weather, paidHandler(http.StatusInternalServerError)), claim, "")
	assert.Equal(t, http.StatusInternalServerError, code, "wrong status")
	assert.False(t, claims.IsSpent(claim), "failed work spent the claim")
	assert.Empty(t, d.ids, "failed work settled")

	// the same claim can be used again
	code, _ = serve(g.Require(weather, paidHandler(http.StatusOK)), claim, "")
	assert.Equal(t, http.StatusOK, code, "retry refused")
	assert.Equal(t, []string{claim}, d.ids, "retry not settled")
}

func TestDemoMode(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	g := admission.New(logger.New(fixtures.LogCategory), nil, admission.Options{Demo: true})
	h := g.Require(weather, paidHandler(http.StatusOK))

	code, reply := serve(h, "anything", "")
	assert.Equal(t, http.StatusOK, code, "wrong status")
	p, ok := reply["payment"].(map[string]interface{})
	if assert.True(t, ok, "missing payment") {
		assert.Equal(t, true, p["demo"], "not marked demo")
		assert.Equal(t, "anything", p["paymentId"], "wrong id")
	}

	// demo still needs a claim
	code, reply = serve(h, "", "")
	assert.Equal(t, http.StatusPaymentRequired, code, "empty claim admitted")
	assert.Equal(t, admission.CodeMissing, reply["code"], "wrong code")
	assert.True(t, g.Stats().Demo, "demo not reported")
}

func TestNoVerifierPanics(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	assert.Panics(t, func() {
		admission.New(logger.New(fixtures.LogCategory), nil, admission.Options{})
	}, "missing verifier accepted")
}
