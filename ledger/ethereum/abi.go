// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ethereum

import (
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/ledger"
)

// the subset of the payment processor contract used by the hub
const processorABI = `[
  {"type":"function","name":"verifyPayment","stateMutability":"view",
   "inputs":[{"name":"paymentId","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"payments","stateMutability":"view",
   "inputs":[{"name":"paymentId","type":"string"}],
   "outputs":[{"name":"payer","type":"address"},
              {"name":"agent","type":"address"},
              {"name":"amount","type":"uint256"},
              {"name":"timestamp","type":"uint256"},
              {"name":"completed","type":"bool"}]},
  {"type":"function","name":"settlePayment","stateMutability":"nonpayable",
   "inputs":[{"name":"paymentId","type":"string"}],
   "outputs":[]},
  {"type":"event","name":"PaymentCreated","anonymous":false,
   "inputs":[{"name":"paymentId","type":"string","indexed":true},
             {"name":"payer","type":"address","indexed":true},
             {"name":"agent","type":"address","indexed":true},
             {"name":"amount","type":"uint256","indexed":false},
             {"name":"serviceId","type":"string","indexed":false}]}
]`

const (
	methodVerify   = "verifyPayment"
	methodPayments = "payments"
	methodSettle   = "settlePayment"
	eventCreated   = "PaymentCreated"
)

// ProcessorABI - parsed contract interface
func ProcessorABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(processorABI))
	if nil != err {
		// constant text, cannot fail at run time
		panic(err)
	}
	return parsed
}

// convert the outputs of the payments() view into a record
func decodeRecord(paymentID string, out []interface{}) (*ledger.PaymentRecord, error) {
	if 5 != len(out) {
		return nil, fault.UnexpectedLedgerResponse
	}

	payer, ok := out[0].(common.Address)
	if !ok {
		return nil, fault.UnexpectedLedgerResponse
	}
	agent, ok := out[1].(common.Address)
	if !ok {
		return nil, fault.UnexpectedLedgerResponse
	}
	amount, ok := out[2].(*big.Int)
	if !ok {
		return nil, fault.UnexpectedLedgerResponse
	}
	timestamp, ok := out[3].(*big.Int)
	if !ok {
		return nil, fault.UnexpectedLedgerResponse
	}
	completed, ok := out[4].(bool)
	if !ok {
		return nil, fault.UnexpectedLedgerResponse
	}

	return &ledger.PaymentRecord{
		PaymentID: paymentID,
		Payer:     payer.Hex(),
		Agent:     agent.Hex(),
		Amount:    clampAmount(amount),
		Timestamp: time.Unix(clampTimestamp(timestamp), 0).UTC(),
		Completed: completed,
	}, nil
}

// uint256 amounts beyond 64 bits saturate, any such payment already
// exceeds every price the hub can be configured with
func clampAmount(v *big.Int) uint64 {
	if v.Sign() < 0 {
		return 0
	}
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

func clampTimestamp(v *big.Int) int64 {
	if v.Sign() < 0 {
		return 0
	}
	if !v.IsInt64() {
		return math.MaxInt64
	}
	return v.Int64()
}
