// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package local - a leveldb ledger for the local development chain
//
// it stands in for the payment processor contract so the whole payment
// flow (create, verify, settle) can be exercised without a node
package local

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/ledger"
	"github.com/bitmark-inc/logger"
)

// key layout
//
//  0x00 'V' 'E' 'R' 'S' 'I' 'O' 'N'   → uint32 big endian
//  'P' payment id                     → JSON PaymentRecord
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

const (
	currentVersion = 0x100
	paymentPrefix  = 'P'
	idPrefix       = "pay_"
)

// Ledger - local payment ledger
type Ledger struct {
	sync.Mutex
	log     *logger.L
	db      *leveldb.DB
	created counter.Counter
	settled counter.Counter
}

// Payment - fields supplied when creating a payment
type Payment struct {
	PaymentID string // optional, generated if empty
	Payer     string
	Agent     string
	Amount    uint64
	ServiceID string
}

// ensure interface is satisfied
var _ ledger.Ledger = (*Ledger)(nil)

// Open - open or create a ledger database file
func Open(log *logger.L, name string) (*Ledger, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(name, opt)
	if nil != err {
		return nil, err
	}
	return setup(log, db)
}

// New - ledger on an arbitrary leveldb storage, e.g. memory for tests
func New(log *logger.L, stor ldb_storage.Storage) (*Ledger, error) {
	db, err := leveldb.Open(stor, nil)
	if nil != err {
		return nil, err
	}
	return setup(log, db)
}

func setup(log *logger.L, db *leveldb.DB) (*Ledger, error) {
	version, err := getVersion(db)
	if nil != err {
		db.Close()
		return nil, err
	}

	switch {
	case 0 == version:
		err = putVersion(db, currentVersion)
		if nil != err {
			db.Close()
			return nil, err
		}
	case version > currentVersion:
		db.Close()
		return nil, fmt.Errorf("ledger database version: %d > current version: %d", version, currentVersion)
	}

	return &Ledger{
		log: log,
		db:  db,
	}, nil
}

// Close - release the database
func (l *Ledger) Close() error {
	l.Lock()
	defer l.Unlock()
	if nil == l.db {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// Create - write a new, uncompleted payment record
func (l *Ledger) Create(ctx context.Context, payment Payment) (*ledger.PaymentRecord, error) {
	if err := ctx.Err(); nil != err {
		return nil, fault.Ledger("create", err)
	}

	id := payment.PaymentID
	if "" == id {
		id = idPrefix + uuid.New().String()
	}

	record := &ledger.PaymentRecord{
		PaymentID: id,
		Payer:     payment.Payer,
		Agent:     payment.Agent,
		Amount:    payment.Amount,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Completed: false,
		ServiceID: payment.ServiceID,
	}

	l.Lock()
	defer l.Unlock()

	found, err := l.db.Has(paymentKey(id), nil)
	if nil != err {
		return nil, fault.Ledger("create", err)
	}
	if found {
		return nil, fault.PaymentAlreadyExists
	}

	if err := l.put(record); nil != err {
		return nil, err
	}

	l.created.Increment()
	l.log.Infof("created: %s  payer: %s  agent: %s  amount: %d", id, record.Payer, record.Agent, record.Amount)
	return record, nil
}

// RecordExists - true if the payment was ever created
func (l *Ledger) RecordExists(ctx context.Context, paymentID string) (bool, error) {
	if err := ctx.Err(); nil != err {
		return false, fault.Ledger("exists", err)
	}

	l.Lock()
	defer l.Unlock()

	found, err := l.db.Has(paymentKey(paymentID), nil)
	if nil != err {
		return false, fault.Ledger("exists", err)
	}
	return found, nil
}

// GetRecord - fetch a payment record
func (l *Ledger) GetRecord(ctx context.Context, paymentID string) (*ledger.PaymentRecord, error) {
	if err := ctx.Err(); nil != err {
		return nil, fault.Ledger("get", err)
	}

	l.Lock()
	defer l.Unlock()

	return l.get(paymentID)
}

// Settle - mark a payment as completed
func (l *Ledger) Settle(ctx context.Context, paymentID string) error {
	if err := ctx.Err(); nil != err {
		return fault.Ledger("settle", err)
	}

	l.Lock()
	defer l.Unlock()

	record, err := l.get(paymentID)
	if nil != err {
		return err
	}
	if record.Completed {
		return fault.PaymentAlreadySettled
	}

	record.Completed = true
	if err := l.put(record); nil != err {
		return err
	}

	l.settled.Increment()
	l.log.Infof("settled: %s", paymentID)
	return nil
}

// Count - number of payment records held
func (l *Ledger) Count() (int, error) {
	l.Lock()
	defer l.Unlock()

	n := 0
	iter := l.db.NewIterator(ldb_util.BytesPrefix([]byte{paymentPrefix}), nil)
	for iter.Next() {
		n += 1
	}
	iter.Release()
	return n, iter.Error()
}

// Stats - payments created and settled since start
func (l *Ledger) Stats() (created uint64, settled uint64) {
	return l.created.Uint64(), l.settled.Uint64()
}

// must hold lock
func (l *Ledger) get(paymentID string) (*ledger.PaymentRecord, error) {
	buffer, err := l.db.Get(paymentKey(paymentID), nil)
	if leveldb.ErrNotFound == err {
		return nil, fault.PaymentNotFound
	} else if nil != err {
		return nil, fault.Ledger("get", err)
	}

	var record ledger.PaymentRecord
	if err := json.Unmarshal(buffer, &record); nil != err {
		l.log.Errorf("corrupt record: %s  error: %s", paymentID, err)
		return nil, fault.UnexpectedLedgerResponse
	}
	return &record, nil
}

// must hold lock
func (l *Ledger) put(record *ledger.PaymentRecord) error {
	buffer, err := json.Marshal(record)
	if nil != err {
		return err
	}
	return fault.Ledger("put", l.db.Put(paymentKey(record.PaymentID), buffer, nil))
}

func paymentKey(paymentID string) []byte {
	return append([]byte{paymentPrefix}, paymentID...)
}

func getVersion(db *leveldb.DB) (int, error) {
	value, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return 0, nil
	} else if nil != err {
		return 0, err
	}
	if 4 != len(value) {
		return 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(value))
	}
	return int(binary.BigEndian.Uint32(value)), nil
}

func putVersion(db *leveldb.DB, version int) error {
	buffer := make([]byte, 4)
	binary.BigEndian.PutUint32(buffer, uint32(version))
	return db.Put(versionKey, buffer, nil)
}
