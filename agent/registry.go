// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package agent

import (
	"context"
	"time"

	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/fault"
)

// Agent - answers one paid query
type Agent interface {
	Kind() Kind
	Describe() Description
	Answer(ctx context.Context, query string) (*Reply, error)
}

// Description - the free information about an agent
type Description struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	DependsOn    []Kind   `json:"dependsOn,omitempty"`
}

// Reply - the paid result
type Reply struct {
	AgentName string      `json:"agentName"`
	Answer    string      `json:"answer"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Environment - shared state handed to every factory
type Environment struct {
	WeatherCache *cache.T
	Journal      *Journal
}

type factory func(env *Environment) Agent

var factories = map[Kind]factory{
	Weather:    newWeather,
	Fashion:    newFashion,
	Activities: newActivities,
	Logs:       newLogs,
}

// Registry - the instantiated agents
type Registry struct {
	agents map[Kind]Agent
	order  []Kind
}

// NewRegistry - create the listed kinds, all kinds when none are given
func NewRegistry(env *Environment, kinds ...Kind) (*Registry, error) {
	if 0 == len(kinds) {
		kinds = AllKinds()
	}
	if nil == env.Journal {
		env.Journal = NewJournal(DefaultJournalSize)
	}

	r := &Registry{
		agents: make(map[Kind]Agent, len(kinds)),
	}
	for _, kind := range kinds {
		f, ok := factories[kind]
		if !ok {
			return nil, fault.InvalidAgentKind
		}
		if _, ok := r.agents[kind]; ok {
			continue
		}
		r.agents[kind] = f(env)
		r.order = append(r.order, kind)
	}
	return r, nil
}

// Get - one agent
func (r *Registry) Get(kind Kind) (Agent, bool) {
	a, ok := r.agents[kind]
	return a, ok
}

// Kinds - registered kinds in creation order
func (r *Registry) Kinds() []Kind {
	return append([]Kind{}, r.order...)
}
