// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/bitmark-inc/agenthub/chain"
	"github.com/bitmark-inc/agenthub/configuration"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/agenthub/ledger/ethereum"
	"github.com/bitmark-inc/agenthub/ledger/local"
	"github.com/bitmark-inc/agenthub/rpc"
	"github.com/bitmark-inc/logger"
)

// the ledger for the configured chain and what it can do
type ledgerConnection struct {
	reader  ledger.Reader
	settler ledger.Settler     // nil if payments cannot be settled
	creator rpc.PaymentCreator // local chain only
	watcher *ethereum.Watcher  // on-chain only
	close   func()
}

func (c *ledgerConnection) Close() {
	if nil != c.close {
		c.close()
	}
}

func openLedger(conf *configuration.Configuration) (*ledgerConnection, error) {
	log := logger.New("ledger")

	if chain.IsLocal(conf.Chain) {
		log.Infof("database: %q", conf.Database.Name)
		l, err := local.Open(log, conf.Database.Name)
		if nil != err {
			return nil, err
		}
		return &ledgerConnection{
			reader:  l,
			settler: l,
			creator: l,
			close:   func() { l.Close() },
		}, nil
	}

	details, _ := chain.Get(conf.Chain)
	timeout := configuration.Seconds(conf.Ledger.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Infof("node: %s", conf.Ledger.RPCURL)
	l, client, err := ethereum.Dial(ctx, log, ethereum.Configuration{
		URL:        conf.Ledger.RPCURL,
		Contract:   conf.Ledger.PaymentProcessor,
		PrivateKey: conf.Ledger.PrivateKey,
		ChainID:    details.ChainID,
		Timeout:    timeout,
	})
	if nil != err {
		return nil, err
	}

	events := logger.New("events")
	notify := func(e ethereum.PaymentEvent) {
		events.Infof("payment created: block: %d  tx: %s  payer: %s  agent: %s  amount: %d  service: %q",
			e.Block, e.Transaction, e.Payer, e.Agent, e.Amount, e.ServiceID)
	}

	conn := &ledgerConnection{
		reader:  l,
		watcher: l.NewWatcher(logger.New("watcher"), configuration.Seconds(conf.Ledger.WatchInterval), notify),
		close:   client.Close,
	}
	if l.CanSettle() {
		conn.settler = l
	}
	return conn, nil
}
