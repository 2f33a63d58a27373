// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc - the hub's HTTP(S) surface
//
//	GET  /health                  status and counters
//	GET  /agents                  agent catalogue
//	GET  /agents/<kind>/info      one agent, free
//	POST /agents/<kind>/query     one agent, paid
//	POST /payments/verify         verification without spending
//	POST /payments/create         local chain only
package rpc
