// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package agent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/agenthub/agent"
	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/currency"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/fixtures"
)

func TestKind(t *testing.T) {
	for _, kind := range agent.AllKinds() {
		k, err := agent.KindFromString(kind.String())
		assert.Nil(t, err, "parse %s", kind)
		assert.Equal(t, kind, k, "round trip")
	}

	_, err := agent.KindFromString("oracle")
	assert.Equal(t, fault.InvalidAgentKind, err, "unknown kind")
	assert.False(t, agent.Nothing.IsValid(), "Nothing is valid")
}

func TestCityFrom(t *testing.T) {
	assert.Equal(t, "tokyo", agent.CityFrom("What is the weather in Tokyo today?"))
	assert.Equal(t, "new york", agent.CityFrom("NEW YORK please"))
	assert.Equal(t, "default", agent.CityFrom("somewhere nice"))
}

func TestCatalogue(t *testing.T) {
	cat, err := agent.NewCatalogue(currency.USDC, agent.DefaultPricing())
	assert.Nil(t, err, "default pricing")

	p, ok := cat.Get(agent.Weather)
	assert.True(t, ok, "weather missing")
	assert.Equal(t, "0.001", p.Price, "wrong price")

	err = cat.Replace(map[agent.Kind]agent.Pricing{
		agent.Weather: {Price: "0.001", Wallet: "not an address"},
	})
	assert.Equal(t, fault.InvalidAddress, err, "bad wallet accepted")

	err = cat.Replace(map[agent.Kind]agent.Pricing{
		agent.Weather: {Price: "0.0000001", Wallet: fixtures.WeatherWallet},
	})
	assert.Equal(t, fault.InvalidAmount, err, "too many decimals accepted")

	// failed replacements leave the old list in place
	p, ok = cat.Get(agent.Fashion)
	assert.True(t, ok, "fashion lost")
	assert.Equal(t, "0.002", p.Price, "wrong price")

	err = cat.Replace(map[agent.Kind]agent.Pricing{
		agent.Weather: {Price: "0.01", Wallet: fixtures.MixedCaseAgent},
	})
	assert.Nil(t, err, "replace")
	p, _ = cat.Get(agent.Weather)
	assert.Equal(t, "0.01", p.Price, "price not replaced")
	_, ok = cat.Get(agent.Fashion)
	assert.False(t, ok, "old entry kept")
}

func TestRegistry(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	memo := cache.New("weather", time.Minute)
	r, err := agent.NewRegistry(&agent.Environment{WeatherCache: memo})
	assert.Nil(t, err, "registry")
	assert.Equal(t, agent.AllKinds(), r.Kinds(), "wrong kinds")

	w, ok := r.Get(agent.Weather)
	assert.True(t, ok, "weather missing")

	reply, err := w.Answer(context.Background(), "weather in tokyo")
	assert.Nil(t, err, "answer")
	c, ok := reply.Data.(agent.Conditions)
	assert.True(t, ok, "wrong data type")
	assert.Equal(t, 28, c.Temperature, "wrong temperature")
	assert.True(t, c.IsRainy(), "tokyo not rainy")

	// fashion reuses the memoised lookup
	f, _ := r.Get(agent.Fashion)
	_, err = f.Answer(context.Background(), "what to wear in tokyo")
	assert.Nil(t, err, "fashion answer")
	assert.Equal(t, uint64(1), memo.Stats().Hits, "weather not memoised")

	_, err = agent.NewRegistry(&agent.Environment{}, agent.Nothing)
	assert.Equal(t, fault.InvalidAgentKind, err, "invalid kind registered")
}

func TestAdvice(t *testing.T) {
	cold := agent.AdviseOutfit(agent.Conditions{Temperature: 5, Condition: "Sunny", Humidity: 50})
	assert.Equal(t, "Sturdy boots", cold.Footwear, "cold footwear")
	assert.Equal(t, "Bring extra layers", cold.Tip, "cold tip")

	wet := agent.AdviseOutfit(agent.Conditions{Temperature: 28, Condition: "Rainy", Humidity: 85})
	assert.Equal(t, "Rain boots", wet.Footwear, "rain footwear")
	assert.Contains(t, wet.Accessories, "Umbrella", "no umbrella")
	assert.Contains(t, wet.Clothes, "Breathable fabrics", "humidity ignored")
	assert.Equal(t, "Wear sunscreen", wet.Tip, "hot tip")

	plan := agent.PlanActivities(agent.Conditions{Temperature: 30, Condition: "Sunny"})
	assert.Contains(t, plan.Outdoor, "Beach and swimming", "hot plan")

	plan = agent.PlanActivities(agent.Conditions{Temperature: 30, Condition: "Rainy"})
	assert.Contains(t, plan.Indoor, "Museums", "rain plan")
}

func TestJournal(t *testing.T) {
	j := agent.NewJournal(3)

	s := j.Stats()
	assert.Equal(t, "0%", s.SuccessRate, "empty success rate")

	j.Record(agent.Weather, "pay_1", 1000, nil)
	j.Record(agent.Fashion, "pay_2", 2000, nil)
	j.Record(agent.Fashion, "pay_3", 2000, errors.New("boom"))
	j.Record(agent.Logs, "pay_4", 500, nil)

	s = j.Stats()
	assert.Equal(t, uint64(4), s.Total, "wrong total")
	assert.Equal(t, uint64(1), s.Failed, "wrong failed")
	assert.Equal(t, "75.00%", s.SuccessRate, "wrong rate")
	assert.Equal(t, "0.0035 USDC", s.Revenue, "wrong revenue")
	assert.Equal(t, uint64(2), s.AgentCalls["fashion"], "wrong fashion calls")

	recent := j.Recent(10, "")
	assert.Equal(t, 3, len(recent), "journal not bounded")
	assert.Equal(t, "pay_2", recent[0].PaymentID, "oldest not dropped")
	assert.Equal(t, "pay_4", recent[2].PaymentID, "wrong order")

	errs := j.Recent(10, agent.LevelError)
	assert.Equal(t, 1, len(errs), "wrong error count")
	assert.Equal(t, "boom", errs[0].Message, "wrong message")
}
