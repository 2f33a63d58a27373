// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package payment

import (
	"context"
	"time"

	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/logger"
)

// settlement defaults
const (
	DefaultQueueSize     = 100
	DefaultSettleTimeout = 2 * time.Minute
)

// Settlement - fire and forget completion of used payments
type Settlement struct {
	log       *logger.L
	settler   ledger.Settler
	queue     chan string
	timeout   time.Duration
	onSettled func(paymentID string)

	dispatched counter.Counter
	settled    counter.Counter
	failed     counter.Counter
	dropped    counter.Counter
}

// SettlementStats - counters for the health report
type SettlementStats struct {
	Dispatched uint64 `json:"dispatched"`
	Settled    uint64 `json:"settled"`
	Failed     uint64 `json:"failed"`
	Dropped    uint64 `json:"dropped"`
	Pending    int    `json:"pending"`
}

// NewSettlement - onSettled may be nil
func NewSettlement(log *logger.L, settler ledger.Settler, queueSize int, timeout time.Duration, onSettled func(string)) *Settlement {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultSettleTimeout
	}
	return &Settlement{
		log:       log,
		settler:   settler,
		queue:     make(chan string, queueSize),
		timeout:   timeout,
		onSettled: onSettled,
	}
}

// Dispatch - queue a payment for settlement without waiting
func (s *Settlement) Dispatch(paymentID string) error {
	select {
	case s.queue <- paymentID:
		s.dispatched.Increment()
		return nil
	default:
		s.dropped.Increment()
		s.log.Errorf("settle: %s  error: %s", paymentID, fault.SettlementQueueFull)
		return fault.SettlementQueueFull
	}
}

// Run - background process draining the queue
func (s *Settlement) Run(args interface{}, shutdown <-chan struct{}) {
	log := s.log
	log.Info("starting…")

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case paymentID := <-s.queue:
			s.settle(paymentID)
		}
	}

	if n := len(s.queue); n > 0 {
		log.Warnf("abandoned %d pending settlements", n)
	}
	log.Info("shutting down…")
	log.Flush()
}

// failures are logged and counted, never returned
func (s *Settlement) settle(paymentID string) {
	log := s.log

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.settler.Settle(ctx, paymentID)
	switch {
	case nil == err:
		s.settled.Increment()
		log.Infof("settled: %s", paymentID)
	case fault.PaymentAlreadySettled == err:
		log.Warnf("settle: %s  already settled", paymentID)
	default:
		s.failed.Increment()
		log.Errorf("settle: %s  error: %s", paymentID, err)
		return
	}

	if nil != s.onSettled {
		s.onSettled(paymentID)
	}
}

// Stats - counters for the health report
func (s *Settlement) Stats() SettlementStats {
	return SettlementStats{
		Dispatched: s.dispatched.Uint64(),
		Settled:    s.settled.Uint64(),
		Failed:     s.failed.Uint64(),
		Dropped:    s.dropped.Uint64(),
		Pending:    len(s.queue),
	}
}
