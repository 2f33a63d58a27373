// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package admission - HTTP 402 gate in front of paid handlers
//
//	no claim ──────────────────────────────▶ 402 PAYMENT_MISSING
//	claim ──▶ verify ──▶ rejected ─────────▶ 402 PAYMENT_INVALID
//	                 ──▶ ledger failure ───▶ 500
//	                 ──▶ verified ──▶ reserve claim ──▶ handler
//	                                   │                  │
//	                                   ▼                  ▼
//	                      402 PAYMENT_INVALID   success: spend + settle
//	                                            failure: release
package admission

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/payment"
	"github.com/bitmark-inc/logger"
)

// HeaderName - request header carrying the payment claim
const HeaderName = "X-Payment-Id"

// a client that has not paid yet often sends this literal
const undefinedClaim = "undefined"

// largest request body inspected for a claim
const maximumBody = 1 << 20

// DefaultVerifyTimeout - bound on verifying one claim, shorter than the
// server write timeout so a slow ledger still gets a reply
const DefaultVerifyTimeout = 35 * time.Second

// response codes
const (
	CodeMissing = "PAYMENT_MISSING"
	CodeInvalid = "PAYMENT_INVALID"
	CodeFailed  = "VERIFICATION_ERROR"
)

// Verifier - full payment verification
type Verifier interface {
	VerifyPayment(ctx context.Context, paymentID string, expectedRecipient string, minimumAmount string) payment.Result
}

// Claims - single use guard
type Claims interface {
	Reserve(paymentID string) error
	Spend(paymentID string)
	Release(paymentID string)
}

// Dispatcher - queue settlement after successful work
type Dispatcher interface {
	Dispatch(paymentID string) error
}

// Resource - what a caller must pay to reach one handler
type Resource struct {
	Recipient string
	Price     string
	Currency  string
	Network   string
	Processor string
}

// Options - optional collaborators; nil members are skipped
type Options struct {
	Demo          bool
	Claims        Claims
	Settlement    Dispatcher
	VerifyTimeout time.Duration // zero selects DefaultVerifyTimeout
}

// Gate - shared by all paid handlers
type Gate struct {
	log      *logger.L
	verifier Verifier
	options  Options

	missing  counter.Counter
	invalid  counter.Counter
	failed   counter.Counter
	admitted counter.Counter
}

// Stats - request counters for the health report
type Stats struct {
	Missing  uint64 `json:"missing"`
	Invalid  uint64 `json:"invalid"`
	Failed   uint64 `json:"failed"`
	Admitted uint64 `json:"admitted"`
	Demo     bool   `json:"demo"`
}

// New - a verifier is required unless in demo mode
func New(log *logger.L, verifier Verifier, options Options) *Gate {
	if nil == verifier && !options.Demo {
		logger.Panicf("admission: no verifier and not in demo mode")
	}
	if options.Demo {
		log.Warn("demo mode: payment claims are accepted without verification")
	}
	if options.VerifyTimeout <= 0 {
		options.VerifyTimeout = DefaultVerifyTimeout
	}
	return &Gate{
		log:      log,
		verifier: verifier,
		options:  options,
	}
}

// Require - wrap next so it only runs for a verified claim
//
// resource is evaluated per request so price changes apply at once
func (g *Gate) Require(resource func() Resource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := g.log
		res := resource()

		paymentID, err := claimFrom(r)
		if nil != err {
			log.Errorf("read body: %s", err)
			sendJSON(w, http.StatusBadRequest, map[string]interface{}{
				"code":  http.StatusBadRequest,
				"error": "invalid request body",
			})
			return
		}

		if "" == paymentID {
			g.missing.Increment()
			sendJSON(w, http.StatusPaymentRequired, missingReply{
				Error:   "Payment Required",
				Message: "This resource requires payment. Create a payment and send its id in the " + HeaderName + " header",
				Code:    CodeMissing,
				Payment: paymentTerms{
					Amount:           res.Price,
					Currency:         res.Currency,
					Network:          res.Network,
					AgentAddress:     res.Recipient,
					ProcessorAddress: res.Processor,
				},
			})
			return
		}

		if g.options.Demo {
			g.admitted.Increment()
			log.Infof("demo admit: %s", paymentID)
			details := &payment.Details{
				PaymentID: paymentID,
				Agent:     res.Recipient,
				Amount:    res.Price,
				Currency:  res.Currency,
				Demo:      true,
			}
			next.ServeHTTP(w, r.WithContext(withDetails(r.Context(), details)))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.options.VerifyTimeout)
		result := g.verifier.VerifyPayment(ctx, paymentID, res.Recipient, res.Price)
		cancel()
		if result.IsLedgerFailure() {
			g.failed.Increment()
			sendJSON(w, http.StatusInternalServerError, invalidReply{
				Error:   "Internal Server Error",
				Message: result.Message,
				Code:    CodeFailed,
				Reason:  result.Reason,
			})
			return
		}
		if !result.Verified {
			g.invalid.Increment()
			sendJSON(w, http.StatusPaymentRequired, invalidReply{
				Error:   "Payment verification failed",
				Message: result.Message,
				Code:    CodeInvalid,
				Reason:  result.Reason,
			})
			return
		}

		claims := g.options.Claims
		if nil != claims {
			if err := claims.Reserve(paymentID); nil != err {
				g.invalid.Increment()
				sendJSON(w, http.StatusPaymentRequired, invalidReply{
					Error:   "Payment verification failed",
					Message: "Payment already used",
					Code:    CodeInvalid,
					Reason:  payment.AlreadyUsed,
				})
				return
			}
		}

		g.admitted.Increment()
		log.Infof("admit: %s  payer: %s  amount: %s %s", paymentID, result.Details.Payer, result.Details.Amount, result.Details.Currency)

		recorder := &statusRecorder{ResponseWriter: w}
		succeeded := false
		defer func() {
			if succeeded {
				return
			}
			log.Warnf("handler failed: %s  status: %d", paymentID, recorder.status)
			if nil != claims {
				claims.Release(paymentID)
			}
		}()

		next.ServeHTTP(recorder, r.WithContext(withDetails(r.Context(), result.Details)))

		if recorder.status >= http.StatusBadRequest {
			return
		}
		succeeded = true

		if nil != claims {
			claims.Spend(paymentID)
		}
		if nil != g.options.Settlement {
			_ = g.options.Settlement.Dispatch(paymentID)
		}
	})
}

// Stats - request counters
func (g *Gate) Stats() Stats {
	return Stats{
		Missing:  g.missing.Uint64(),
		Invalid:  g.invalid.Uint64(),
		Failed:   g.failed.Uint64(),
		Admitted: g.admitted.Uint64(),
		Demo:     g.options.Demo,
	}
}

// header first, then a paymentId field in a JSON body
//
// the body is restored so the handler can read it again
func claimFrom(r *http.Request) (string, error) {
	if id := normalise(r.Header.Get(HeaderName)); "" != id {
		return id, nil
	}
	if nil == r.Body || http.NoBody == r.Body {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maximumBody))
	r.Body.Close()
	if nil != err {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var fields struct {
		PaymentID interface{} `json:"paymentId"`
	}
	if nil != json.Unmarshal(body, &fields) {
		return "", nil
	}
	id, ok := fields.PaymentID.(string)
	if !ok {
		return "", nil
	}
	return normalise(id), nil
}

func normalise(id string) string {
	if undefinedClaim == id {
		return ""
	}
	return id
}
