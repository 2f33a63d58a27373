// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package admission_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/currency"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/fixtures"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/agenthub/payment"
	"github.com/bitmark-inc/agenthub/rpc/admission"
	"github.com/bitmark-inc/logger"
)

// a node that does not answer until released
type stalledReader struct {
	release chan struct{}
}

func (s *stalledReader) RecordExists(ctx context.Context, paymentID string) (bool, error) {
	<-s.release
	return false, fault.Ledger("exists", context.DeadlineExceeded)
}

func (s *stalledReader) GetRecord(ctx context.Context, paymentID string) (*ledger.PaymentRecord, error) {
	<-s.release
	return nil, fault.Ledger("get", context.DeadlineExceeded)
}

func TestStalledLedgerStillReplies(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	reader := &stalledReader{release: make(chan struct{})}
	defer close(reader.release)

	v := payment.NewVerifier(logger.New(fixtures.LogCategory), reader, cache.New("verified", time.Minute), time.Minute, currency.USDC)
	g := admission.New(logger.New(fixtures.LogCategory), v, admission.Options{
		Claims:        newClaims(),
		VerifyTimeout: 100 * time.Millisecond,
	})

	server := httptest.NewUnstartedServer(g.Require(weather, paidHandler(http.StatusOK)))
	server.Config.WriteTimeout = time.Second
	server.Start()
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL+"/agents/weather/query", nil)
	if nil != err {
		t.Fatalf("request error: %s", err)
	}
	request.Header.Set(admission.HeaderName, claim)

	start := time.Now()
	response, err := server.Client().Do(request)
	if nil != err {
		t.Fatalf("no reply: %s", err)
	}
	defer response.Body.Close()

	assert.Less(t, time.Since(start), time.Second, "reply not bounded by the verify timeout")
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode, "wrong status")

	reply := map[string]interface{}{}
	err = json.NewDecoder(response.Body).Decode(&reply)
	assert.Nil(t, err, "body not JSON")
	assert.Equal(t, admission.CodeFailed, reply["code"], "wrong code")
	assert.Equal(t, string(payment.VerificationFailed), reply["reason"], "wrong reason")
	assert.Equal(t, uint64(1), g.Stats().Failed, "wrong failed count")
}
