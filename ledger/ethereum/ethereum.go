// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ethereum - ledger backed by the payment processor contract
// on an EVM chain
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/logger"
)

// Backend - the node operations used by the ledger and its watcher
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

// Configuration - connection to the contract
type Configuration struct {
	URL        string
	Contract   string
	PrivateKey string // optional, hex; settlement disabled if empty
	ChainID    int64
	Timeout    time.Duration // per node request, zero selects DefaultTimeout
}

// DefaultTimeout - bound on one node request
const DefaultTimeout = 15 * time.Second

// Ledger - on-chain payment ledger
type Ledger struct {
	log        *logger.L
	backend    Backend
	address    common.Address
	contract   *bind.BoundContract
	transactor *bind.TransactOpts
}

// ensure interface is satisfied
var _ ledger.Ledger = (*Ledger)(nil)

// Dial - connect to a node and bind the contract
func Dial(ctx context.Context, log *logger.L, conf Configuration) (*Ledger, *ethclient.Client, error) {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c, err := rpc.DialOptions(ctx, conf.URL, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if nil != err {
		return nil, nil, fault.Ledger("dial", err)
	}
	client := ethclient.NewClient(c)
	l, err := New(log, client, conf)
	if nil != err {
		client.Close()
		return nil, nil, err
	}
	return l, client, nil
}

// New - bind the contract on an existing backend
func New(log *logger.L, backend Backend, conf Configuration) (*Ledger, error) {
	if !common.IsHexAddress(conf.Contract) {
		return nil, fault.InvalidAddress
	}
	address := common.HexToAddress(conf.Contract)

	l := &Ledger{
		log:      log,
		backend:  backend,
		address:  address,
		contract: bind.NewBoundContract(address, ProcessorABI(), backend, backend, backend),
	}

	if "" != conf.PrivateKey {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(conf.PrivateKey, "0x"))
		if nil != err {
			return nil, fault.InvalidPrivateKey
		}
		opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(conf.ChainID))
		if nil != err {
			return nil, err
		}
		l.transactor = opts
		log.Infof("settlement account: %s", crypto.PubkeyToAddress(*key.Public().(*ecdsa.PublicKey)).Hex())
	} else {
		log.Warn("no private key: settlement disabled")
	}

	log.Infof("payment processor: %s", address.Hex())
	return l, nil
}

// Address - contract address
func (l *Ledger) Address() string {
	return l.address.Hex()
}

// CanSettle - true if a signing key is configured
func (l *Ledger) CanSettle() bool {
	return nil != l.transactor
}

// RecordExists - the contract's verifyPayment view
func (l *Ledger) RecordExists(ctx context.Context, paymentID string) (bool, error) {
	var out []interface{}
	err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodVerify, paymentID)
	if nil != err {
		return false, fault.Ledger(methodVerify, err)
	}
	if 1 != len(out) {
		return false, fault.UnexpectedLedgerResponse
	}
	exists, ok := out[0].(bool)
	if !ok {
		return false, fault.UnexpectedLedgerResponse
	}
	return exists, nil
}

// GetRecord - the contract's payments view
func (l *Ledger) GetRecord(ctx context.Context, paymentID string) (*ledger.PaymentRecord, error) {
	var out []interface{}
	err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodPayments, paymentID)
	if nil != err {
		return nil, fault.Ledger(methodPayments, err)
	}
	return decodeRecord(paymentID, out)
}

// Settle - send settlePayment and wait for it to be mined
func (l *Ledger) Settle(ctx context.Context, paymentID string) error {
	if nil == l.transactor {
		return fault.SettlementNotConfigured
	}

	opts := *l.transactor
	opts.Context = ctx

	tx, err := l.contract.Transact(&opts, methodSettle, paymentID)
	if nil != err {
		return fault.Ledger(methodSettle, err)
	}
	l.log.Infof("settle: %s  tx: %s", paymentID, tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if nil != err {
		return fault.Ledger("wait mined", err)
	}
	if types.ReceiptStatusSuccessful != receipt.Status {
		l.log.Errorf("settle: %s  tx: %s  reverted in block: %d", paymentID, tx.Hash().Hex(), receipt.BlockNumber)
		return fault.SettlementReverted
	}

	l.log.Infof("settled: %s  block: %d", paymentID, receipt.BlockNumber)
	return nil
}
