// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"time"

	"github.com/bitmark-inc/agenthub/background"
)

// DefaultSweepInterval - period of the expiry sweep
const DefaultSweepInterval = 5 * time.Minute

type cleaner struct {
	caches   []*T
	interval time.Duration
}

// Cleaner - background process that sweeps expired entries from each
// cache once per interval
func Cleaner(interval time.Duration, caches ...*T) background.Process {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &cleaner{
		caches:   caches,
		interval: interval,
	}
}

func (c *cleaner) Run(args interface{}, shutdown <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, t := range c.caches {
				t.CleanExpired()
			}
		case <-shutdown:
			return
		}
	}
}
