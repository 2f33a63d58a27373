// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package agent - the paid query agents served by the hub
//
// each Kind maps to a factory in the registry; the agents themselves
// answer from fixed tables and hold no payment logic
package agent

import (
	"strings"

	"github.com/bitmark-inc/agenthub/fault"
)

// Kind - enumeration of agent types
type Kind int

// possible agent kinds
const (
	Nothing      Kind = iota
	Weather      Kind = iota
	Fashion      Kind = iota
	Activities   Kind = iota
	Logs         Kind = iota
	maximumValue Kind = iota
)

// AllKinds - every valid kind in display order
func AllKinds() []Kind {
	return []Kind{Weather, Fashion, Activities, Logs}
}

// String - name used in URLs and configuration
func (kind Kind) String() string {
	switch kind {
	case Weather:
		return "weather"
	case Fashion:
		return "fashion"
	case Activities:
		return "activities"
	case Logs:
		return "logs"
	default:
		return ""
	}
}

// IsValid - true for the defined kinds
func (kind Kind) IsValid() bool {
	return kind > Nothing && kind < maximumValue
}

// KindFromString - parse a kind name
func KindFromString(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weather":
		return Weather, nil
	case "fashion":
		return Fashion, nil
	case "activities":
		return Activities, nil
	case "logs":
		return Logs, nil
	default:
		return Nothing, fault.InvalidAgentKind
	}
}

// MarshalText - JSON support
func (kind Kind) MarshalText() ([]byte, error) {
	if !kind.IsValid() {
		return nil, fault.InvalidAgentKind
	}
	return []byte(kind.String()), nil
}

// UnmarshalText - JSON support
func (kind *Kind) UnmarshalText(s []byte) error {
	k, err := KindFromString(string(s))
	if nil != err {
		return err
	}
	*kind = k
	return nil
}
