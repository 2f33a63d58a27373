// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/currency"
	"github.com/bitmark-inc/agenthub/currency/units"
)

// DefaultJournalSize - entries kept before the oldest are dropped
const DefaultJournalSize = 1000

const recentEntries = 20

// Level - severity of a journal entry
type Level string

// entry levels
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Entry - one journal line
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Agent     string    `json:"agent"`
	PaymentID string    `json:"paymentId,omitempty"`
	Message   string    `json:"message"`
}

// JournalStats - totals over all paid queries
type JournalStats struct {
	Total       uint64            `json:"total"`
	Successful  uint64            `json:"successful"`
	Failed      uint64            `json:"failed"`
	SuccessRate string            `json:"successRate"`
	Payments    uint64            `json:"payments"`
	Revenue     string            `json:"revenue"`
	AgentCalls  map[string]uint64 `json:"agentCalls"`
}

// Journal - bounded record of paid queries across all agents
type Journal struct {
	sync.Mutex
	size     int
	currency currency.Currency
	entries  []Entry
	calls    map[Kind]uint64
	revenue  uint64

	total      counter.Counter
	successful counter.Counter
	failed     counter.Counter
	payments   counter.Counter
}

// NewJournal - revenue is reported in USDC
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{
		size:     size,
		currency: currency.USDC,
		calls:    make(map[Kind]uint64),
	}
}

// Record - outcome of one admitted query; amount in base units
func (j *Journal) Record(kind Kind, paymentID string, amount uint64, err error) {
	j.total.Increment()

	e := Entry{
		Timestamp: time.Now().UTC(),
		Agent:     kind.String(),
		PaymentID: paymentID,
	}
	if nil != err {
		j.failed.Increment()
		e.Level = LevelError
		e.Message = err.Error()
	} else {
		j.successful.Increment()
		e.Level = LevelSuccess
		e.Message = "query answered"
		if "" != paymentID {
			j.payments.Increment()
		}
	}

	j.Lock()
	defer j.Unlock()
	j.calls[kind] += 1
	if nil == err {
		j.revenue += amount
	}
	if len(j.entries) >= j.size {
		copy(j.entries, j.entries[1:])
		j.entries = j.entries[:len(j.entries)-1]
	}
	j.entries = append(j.entries, e)
}

// Recent - newest entries last, optionally only one level
func (j *Journal) Recent(n int, level Level) []Entry {
	j.Lock()
	defer j.Unlock()

	out := make([]Entry, 0, n)
	for i := len(j.entries) - 1; i >= 0 && len(out) < n; i -= 1 {
		if "" == level || level == j.entries[i].Level {
			out = append(out, j.entries[i])
		}
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// Stats - current totals
func (j *Journal) Stats() JournalStats {
	total := j.total.Uint64()
	successful := j.successful.Uint64()

	rate := "0%"
	if total > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(successful)*100/float64(total))
	}

	j.Lock()
	calls := make(map[string]uint64, len(j.calls))
	for k, v := range j.calls {
		calls[k.String()] = v
	}
	revenue := j.revenue
	j.Unlock()

	return JournalStats{
		Total:       total,
		Successful:  successful,
		Failed:      j.failed.Uint64(),
		SuccessRate: rate,
		Payments:    j.payments.Uint64(),
		Revenue:     units.Format(revenue, j.currency.Decimals()) + " " + j.currency.String(),
		AgentCalls:  calls,
	}
}

type logsAgent struct {
	journal *Journal
}

func newLogs(env *Environment) Agent {
	return &logsAgent{journal: env.Journal}
}

func (l *logsAgent) Kind() Kind {
	return Logs
}

func (l *logsAgent) Describe() Description {
	return Description{
		Name:         "Logs Agent",
		Description:  "Request journal and statistics for the hub",
		Capabilities: []string{"statistics", "recent_requests", "error_report"},
	}
}

func (l *logsAgent) Answer(ctx context.Context, query string) (*Reply, error) {
	q := strings.ToLower(query)
	reply := &Reply{
		AgentName: "Logs Agent",
		Timestamp: time.Now().UTC(),
	}

	switch {
	case strings.Contains(q, "stat"):
		s := l.journal.Stats()
		reply.Answer = fmt.Sprintf("%d requests, success rate %s, revenue %s", s.Total, s.SuccessRate, s.Revenue)
		reply.Data = s
	case strings.Contains(q, "error"):
		entries := l.journal.Recent(recentEntries, LevelError)
		reply.Answer = fmt.Sprintf("%d recent errors", len(entries))
		reply.Data = entries
	default:
		entries := l.journal.Recent(recentEntries, "")
		reply.Answer = fmt.Sprintf("%d recent requests", len(entries))
		reply.Data = entries
	}
	return reply, nil
}
