// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/fixtures"
)

func TestExpiryBoundary(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	c := New("test", time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	_, expiry, found := c.store.GetWithExpiration("a")
	if !found {
		t.Fatal("a not stored")
	}

	c.now = func() time.Time { return expiry.Add(-time.Nanosecond) }
	assert.True(t, c.Has("a"), "expired before its expiry")

	c.now = func() time.Time { return expiry }
	_, ok := c.Get("a")
	assert.False(t, ok, "live at its expiry")
	assert.Equal(t, 1, c.store.ItemCount(), "expired entry not evicted")

	_, expiry, _ = c.store.GetWithExpiration("b")
	c.now = func() time.Time { return expiry }
	assert.True(t, c.Add("b", 3, time.Minute), "add refused at expiry")

	c.now = time.Now
	value, ok := c.Peek("b")
	assert.True(t, ok, "re-added entry missing")
	assert.Equal(t, 3, value, "wrong re-added value")
}
