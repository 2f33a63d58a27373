// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ethereum

import (
	"context"
	"math/big"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/logger"
)

const (
	defaultPollInterval = 60 * time.Second
	maximumBlockRange   = 5000 // blocks in one log query
	queryTimeout        = 30 * time.Second
)

// PaymentEvent - a decoded PaymentCreated log
//
// the payment id is an indexed string so only its keccak hash is on chain
type PaymentEvent struct {
	PaymentIDHash string `json:"paymentIdHash"`
	Payer         string `json:"payer"`
	Agent         string `json:"agent"`
	Amount        uint64 `json:"amount"`
	ServiceID     string `json:"serviceId"`
	Transaction   string `json:"transactionHash"`
	Block         uint64 `json:"block"`
}

// field names follow abi.ToCamelCase of the event arguments
type paymentCreated struct {
	PaymentId common.Hash
	Payer     common.Address
	Agent     common.Address
	Amount    *big.Int
	ServiceId string
}

// Watcher - background process that follows PaymentCreated events
type Watcher struct {
	log      *logger.L
	backend  Backend
	address  common.Address
	abi      abi.ABI
	interval time.Duration
	notify   func(PaymentEvent)

	initialised bool
	latestBlock uint64
	seen        counter.Counter
}

// NewWatcher - follow the ledger's contract from the current head
//
// notify may be nil
func (l *Ledger) NewWatcher(log *logger.L, interval time.Duration, notify func(PaymentEvent)) *Watcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		log:      log,
		backend:  l.backend,
		address:  l.address,
		abi:      ProcessorABI(),
		interval: interval,
		notify:   notify,
	}
}

// Seen - number of payment events observed
func (w *Watcher) Seen() uint64 {
	return w.seen.Uint64()
}

// Run - poll for new blocks until shutdown
func (w *Watcher) Run(args interface{}, shutdown <-chan struct{}) {
	log := w.log
	log.Info("starting…")

	w.start()

loop:
	for {
		log.Debug("waiting…")
		select {
		case <-shutdown:
			break loop
		case <-time.After(w.interval):
			w.process()
		}
	}
	log.Info("stopped")
}

// record the current head as the starting point, no history is scanned
func (w *Watcher) start() {
	head, err := w.head()
	if nil != err {
		w.log.Errorf("block number: error: %s", err)
		return
	}
	w.latestBlock = head
	w.initialised = true
	w.log.Infof("start block: %d", head)
}

func (w *Watcher) head() (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return w.backend.BlockNumber(ctx)
}

// scan any blocks after the last one processed
func (w *Watcher) process() {
	log := w.log

	if !w.initialised {
		w.start()
		return
	}

	head, err := w.head()
	if nil != err {
		log.Errorf("block number: error: %s", err)
		return
	}

	for w.latestBlock < head {
		from := w.latestBlock + 1
		to := head
		if to-from >= maximumBlockRange {
			to = from + maximumBlockRange - 1
		}

		logs, err := w.filter(from, to)
		if nil != err {
			log.Errorf("filter logs: %d to %d  error: %s", from, to, err)
			return
		}

		for _, l := range logs {
			event, err := w.decode(l)
			if nil != err {
				log.Warnf("decode log: tx: %s  error: %s", l.TxHash.Hex(), err)
				continue
			}
			w.seen.Increment()
			log.Infof("payment: %s  payer: %s  agent: %s  amount: %d  service: %q  tx: %s",
				event.PaymentIDHash, event.Payer, event.Agent, event.Amount, event.ServiceID, event.Transaction)
			if nil != w.notify {
				w.notify(event)
			}
		}

		w.latestBlock = to
	}
}

func (w *Watcher) filter(from uint64, to uint64) ([]types.Log, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := geth.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{w.address},
		Topics:    [][]common.Hash{{w.abi.Events[eventCreated].ID}},
	}
	return w.backend.FilterLogs(ctx, query)
}

func (w *Watcher) decode(l types.Log) (PaymentEvent, error) {
	var created paymentCreated

	// signature plus three indexed arguments
	if 4 != len(l.Topics) || 0 == len(l.Data) {
		return PaymentEvent{}, fault.UnexpectedLedgerResponse
	}

	if err := w.abi.UnpackIntoInterface(&created, eventCreated, l.Data); nil != err {
		return PaymentEvent{}, err
	}

	var indexed abi.Arguments
	for _, arg := range w.abi.Events[eventCreated].Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(&created, indexed, l.Topics[1:]); nil != err {
		return PaymentEvent{}, err
	}

	return PaymentEvent{
		PaymentIDHash: created.PaymentId.Hex(),
		Payer:         created.Payer.Hex(),
		Agent:         created.Agent.Hex(),
		Amount:        clampAmount(created.Amount),
		ServiceID:     created.ServiceId,
		Transaction:   l.TxHash.Hex(),
		Block:         l.BlockNumber,
	}, nil
}
