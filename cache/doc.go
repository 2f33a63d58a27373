// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cache - string keyed memory store with per entry expiry
//
//  ***** Instances *****
//
//  Name            Key                 Value                     TTL
//  |___ verified   payment id          payment.Result            10m (fixed)
//  |___ claims     payment id          claim state               10m (fixed)
//  |___ weather    city                agent.Weather             default
//
//  ***** Expiry *****
//
//  an entry whose expiry has passed is never returned; it is removed
//  either on the next Get/Has of that key or by the periodic sweep run
//  as a background process (see Cleaner)
//
//  ***** Statistics *****
//
//  Get counts hits and misses, Set and Add count sets; Has, Delete and
//  Clear leave the counters alone
package cache
