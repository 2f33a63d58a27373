// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - error instances
//
// Provides a single instance of errors to allow easy comparison
// without having to resort to partial string matches.
//
// Ledger transport failures are the one class created at the point of
// failure, so they can carry the underlying message; test for them
// with IsErrLedger rather than by value.
package fault
