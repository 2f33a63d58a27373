// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"

	"github.com/bitmark-inc/agenthub/agent"
	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/agenthub/ledger/local"
	"github.com/bitmark-inc/agenthub/payment"
	"github.com/bitmark-inc/agenthub/rpc/admission"
	"github.com/bitmark-inc/agenthub/rpc/ratelimit"
)

// PaymentCreator - a ledger that can record new payments itself
type PaymentCreator interface {
	Create(ctx context.Context, payment local.Payment) (*ledger.PaymentRecord, error)
}

// EventCounter - a ledger event watcher
type EventCounter interface {
	Seen() uint64
}

// Hub - everything the handlers need, built once at start
//
// optional members are nil when the running mode has no use for them
type Hub struct {
	Version   string
	Chain     string
	Mode      string
	Processor string

	Catalogue *agent.Catalogue
	Registry  *agent.Registry
	Journal   *agent.Journal
	Gate      *admission.Gate

	Verifier   *payment.Verifier   // nil in demo mode
	Creator    PaymentCreator      // local chain only
	Settlement *payment.Settlement // nil when settlement is disabled
	Watcher    EventCounter        // on-chain only
	Limiter    *ratelimit.Limiter  // nil for no limit
	Caches     []*cache.T
}
