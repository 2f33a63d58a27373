// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LedgerError GenericError
type NotFoundError GenericError
type ProcessError GenericError

// common errors - keep in alphabetic order
var (
	AlreadyInitialised         = ExistsError("already initialised")
	CertificateFileExists      = ExistsError("certificate file already exists")
	ClaimAlreadyHeld           = ExistsError("payment claim is already being used")
	KeyFileExists              = ExistsError("key file already exists")
	PaymentAlreadyExists       = ExistsError("payment already exists")
	PaymentAlreadySettled      = ExistsError("payment is already settled")
	InvalidAddress             = InvalidError("invalid address")
	InvalidAgentKind           = InvalidError("invalid agent kind")
	InvalidAmount              = InvalidError("invalid amount")
	InvalidChain               = InvalidError("invalid chain")
	InvalidConfiguration       = InvalidError("configuration must return a table")
	InvalidCurrency            = InvalidError("invalid currency")
	InvalidDirectory           = InvalidError("invalid data directory")
	InvalidDuration            = InvalidError("invalid duration")
	InvalidLedgerMode          = InvalidError("invalid ledger mode")
	InvalidPrivateKey          = InvalidError("invalid private key")
	InvalidStructPointer       = InvalidError("invalid struct pointer")
	MissingParameters          = InvalidError("missing parameters")
	NotInitialised             = NotFoundError("not initialised")
	PaymentNotFound            = NotFoundError("payment not found")
	AmountOverflow             = ProcessError("amount overflows 64 bits")
	RateLimiting               = ProcessError("rate limiting")
	SettlementNotConfigured    = ProcessError("settlement is not configured")
	SettlementQueueFull        = ProcessError("settlement queue is full")
	SettlementReverted         = ProcessError("settlement transaction reverted")
	UnexpectedLedgerResponse   = LedgerError("unexpected ledger response")
	ConfigurationFileNotExists = NotFoundError("configuration file does not exist")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LedgerError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }

// Ledger - wrap a transport failure as a ledger class error so that
// callers can separate an unreachable ledger from a bad claim
func Ledger(operation string, err error) error {
	if nil == err {
		return nil
	}
	if IsErrLedger(err) {
		return err
	}
	return LedgerError(operation + ": " + err.Error())
}

// IsErrExists - determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLedger(e error) bool   { _, ok := e.(LedgerError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
