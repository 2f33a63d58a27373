// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package payment - turn a payment claim into a single use authorisation
//
//  ***** Verification *****
//
//  claim ──► verified cache ──hit──► recheck recipient/amount ──► Result
//              │ miss
//              ▼
//           ledger: RecordExists ──false──► not_found
//              │ true
//              ▼
//           ledger: GetRecord
//              │
//              ├── agent ≠ recipient (case insensitive) ──► wrong_recipient
//              ├── amount < minimum ──────────────────────► insufficient_amount
//              ├── completed ─────────────────────────────► already_used
//              └── ok ──► cache for the verification TTL ──► verified
//
//  any ledger transport failure is reported as verification_failed;
//  only successful results are cached
//
//  concurrent verifications of one payment id share a single ledger
//  lookup (singleflight); each caller then applies its own recipient and
//  amount rules to the shared record
//
//  ***** Claims *****
//
//  a verified payment authorises exactly one unit of work, Claims tracks
//  each id as held while the work runs and spent afterwards so that a
//  concurrent or repeated request is refused before settlement lands
//
//  ***** Settlement *****
//
//  after the work is delivered the id is queued for a background worker
//  that asks the ledger to mark it completed; failures are logged and
//  counted, never returned to the request path
package payment
