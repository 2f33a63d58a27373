// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package payment

// Reason - why a verification did not succeed
type Reason string

// the fixed set of reasons
const (
	ReasonNone         Reason = ""
	NotFound           Reason = "not_found"
	WrongRecipient     Reason = "wrong_recipient"
	InsufficientAmount Reason = "insufficient_amount"
	AlreadyUsed        Reason = "already_used"
	VerificationFailed Reason = "verification_failed"
)

const (
	messageNotFound     = "Payment not found on-chain"
	messageAlreadyUsed  = "Payment already used"
	messageVerifyFailed = "Verification failed: "
)

// Details - snapshot of the ledger record at verification time
type Details struct {
	PaymentID string `json:"paymentId"`
	Payer     string `json:"payer"`
	Agent     string `json:"agent"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Timestamp int64  `json:"timestamp"`
	Completed bool   `json:"completed"`
	Demo      bool   `json:"demo,omitempty"`

	baseUnits uint64
}

// Result - outcome of one verification
//
// Details is set only when Verified is true, Reason and Message only
// when it is false
type Result struct {
	Verified bool     `json:"verified"`
	Details  *Details `json:"details,omitempty"`
	Reason   Reason   `json:"error,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// IsLedgerFailure - the ledger could not be reached or answered badly;
// this is an infrastructure failure rather than a bad claim
func (r Result) IsLedgerFailure() bool {
	return VerificationFailed == r.Reason
}

func failed(reason Reason, message string) Result {
	return Result{
		Verified: false,
		Reason:   reason,
		Message:  message,
	}
}

// BaseUnits - amount in base units of the currency, zero in demo mode
func (d *Details) BaseUnits() uint64 {
	return d.baseUnits
}
