// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:generate mockgen -source=ledger.go -destination=mocks/ledger.go -package=mocks

// Package ledger - the external system of record holding payment facts
//
// the hub only reads payment records and, optionally, asks the ledger
// to mark a record as consumed; each chain provides its own
// implementation of these interfaces
package ledger

import (
	"context"
	"time"
)

// PaymentRecord - one payment as written to the ledger
//
// Amount is in base units of the configured currency
type PaymentRecord struct {
	PaymentID string    `json:"paymentId"`
	Payer     string    `json:"payer"`
	Agent     string    `json:"agent"`
	Amount    uint64    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Completed bool      `json:"completed"`
	ServiceID string    `json:"serviceId,omitempty"`
}

// Reader - query side of a ledger
//
// transport failures must be returned as fault.LedgerError so they are
// never confused with a missing record
type Reader interface {
	RecordExists(ctx context.Context, paymentID string) (bool, error)
	GetRecord(ctx context.Context, paymentID string) (*PaymentRecord, error)
}

// Settler - mutation side of a ledger
type Settler interface {
	Settle(ctx context.Context, paymentID string) error
}

// Ledger - both sides
type Ledger interface {
	Reader
	Settler
}
