// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ethereum

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/fault"
)

var (
	testPayer = common.HexToAddress("0x9f8e7d6c5b4a39281706f5e4d3c2b1a098765432")
	testAgent = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func TestClampAmount(t *testing.T) {
	huge, _ := new(big.Int).SetString("1000000000000000000000000", 10)

	assert.Equal(t, uint64(0), clampAmount(big.NewInt(0)), "zero")
	assert.Equal(t, uint64(1000), clampAmount(big.NewInt(1000)), "small")
	assert.Equal(t, uint64(math.MaxUint64), clampAmount(huge), "not saturated")
	assert.Equal(t, uint64(0), clampAmount(big.NewInt(-5)), "negative")
}

func TestDecodeRecord(t *testing.T) {
	out := []interface{}{testPayer, testAgent, big.NewInt(2000), big.NewInt(1700000000), false}

	record, err := decodeRecord("pay_1", out)
	assert.Nil(t, err, "decode error")
	assert.Equal(t, "pay_1", record.PaymentID, "wrong id")
	assert.Equal(t, testPayer.Hex(), record.Payer, "wrong payer")
	assert.Equal(t, testAgent.Hex(), record.Agent, "wrong agent")
	assert.Equal(t, uint64(2000), record.Amount, "wrong amount")
	assert.Equal(t, int64(1700000000), record.Timestamp.Unix(), "wrong timestamp")
	assert.False(t, record.Completed, "wrong completed")

	_, err = decodeRecord("pay_1", out[:4])
	assert.Equal(t, fault.UnexpectedLedgerResponse, err, "short output accepted")

	bad := []interface{}{"payer", testAgent, big.NewInt(2000), big.NewInt(1700000000), false}
	_, err = decodeRecord("pay_1", bad)
	assert.Equal(t, fault.UnexpectedLedgerResponse, err, "wrong type accepted")
}

func TestDecodeEvent(t *testing.T) {
	parsed := ProcessorABI()
	event := parsed.Events[eventCreated]

	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(1000), "weather")
	if nil != err {
		t.Fatalf("pack error: %s", err)
	}

	idHash := crypto.Keccak256Hash([]byte("pay_1"))
	l := types.Log{
		Topics: []common.Hash{
			event.ID,
			idHash,
			common.BytesToHash(testPayer.Bytes()),
			common.BytesToHash(testAgent.Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: 7,
	}

	w := &Watcher{abi: parsed}
	decoded, err := w.decode(l)
	assert.Nil(t, err, "decode error")
	assert.Equal(t, idHash.Hex(), decoded.PaymentIDHash, "wrong id hash")
	assert.Equal(t, testPayer.Hex(), decoded.Payer, "wrong payer")
	assert.Equal(t, testAgent.Hex(), decoded.Agent, "wrong agent")
	assert.Equal(t, uint64(1000), decoded.Amount, "wrong amount")
	assert.Equal(t, "weather", decoded.ServiceID, "wrong service")
	assert.Equal(t, uint64(7), decoded.Block, "wrong block")

	l.Topics = l.Topics[:2]
	_, err = w.decode(l)
	assert.Equal(t, fault.UnexpectedLedgerResponse, err, "short topics accepted")
}
