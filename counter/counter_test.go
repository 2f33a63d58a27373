// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package counter_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/counter"
)

func TestCounter(t *testing.T) {
	var c counter.Counter

	assert.True(t, c.IsZero(), "counter is not zero at start")

	c.Increment()
	c.Increment()
	c.Add(3)
	assert.Equal(t, uint64(5), c.Uint64(), "wrong value after incrementing")

	c.Decrement()
	assert.Equal(t, uint64(4), c.Uint64(), "wrong value after decrementing")

	assert.Equal(t, uint64(4), c.Reset(), "reset returned wrong previous value")
	assert.True(t, c.IsZero(), "counter did not return to zero")
}

func TestCounterConcurrent(t *testing.T) {
	var c counter.Counter
	var wg sync.WaitGroup

	for i := 0; i < 50; i += 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j += 1 {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(5000), c.Uint64(), "lost increments")
}
