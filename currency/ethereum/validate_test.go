// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ethereum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/currency/ethereum"
	"github.com/bitmark-inc/agenthub/fault"
)

func TestValidateAddress(t *testing.T) {
	addresses := []struct {
		address  string
		expected string
		err      error
	}{
		{"0x97CA3e550b7b6091A652645e89f98946Cda5Ac08", "0x97CA3e550b7b6091A652645e89f98946Cda5Ac08", nil},
		{"0x97ca3e550b7b6091a652645e89f98946cda5ac08", "0x97CA3e550b7b6091A652645e89f98946Cda5Ac08", nil},
		{"97ca3e550b7b6091a652645e89f98946cda5ac08", "0x97CA3e550b7b6091A652645e89f98946Cda5Ac08", nil},
		{"0x97ca3e550b7b6091a652645e89f98946cda5ac", "", fault.InvalidAddress},
		{"0xZZca3e550b7b6091a652645e89f98946cda5ac08", "", fault.InvalidAddress},
		{"", "", fault.InvalidAddress},
	}

	for i, item := range addresses {
		a, err := ethereum.ValidateAddress(item.address)
		assert.Equal(t, item.err, err, "%d: wrong error for %q", i, item.address)
		assert.Equal(t, item.expected, a, "%d: wrong address for %q", i, item.address)
	}
}

func TestSameAddress(t *testing.T) {
	assert.True(t, ethereum.SameAddress("0xABCDEF0123456789abcdef0123456789ABCDEF01", "0xabcdef0123456789ABCDEF0123456789abcdef01"), "case should not matter")
	assert.False(t, ethereum.SameAddress("0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222"), "different addresses matched")
}
