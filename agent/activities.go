// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitmark-inc/agenthub/cache"
)

// Plan - suggested activities
type Plan struct {
	Outdoor        []string `json:"outdoor"`
	Indoor         []string `json:"indoor"`
	Recommendation string   `json:"recommendation"`
}

// PlanActivities - activities for the given conditions
func PlanActivities(c Conditions) Plan {
	switch t := c.Temperature; {
	case c.IsRainy():
		return Plan{
			Indoor:         []string{"Museums", "Cinema", "Coffee and reading", "Shopping centres", "Bowling"},
			Outdoor:        []string{"A walk with an umbrella if the rain is light"},
			Recommendation: "A day for indoor and cultural activities.",
		}
	case t < 10:
		return Plan{
			Indoor:         []string{"Spa and sauna", "Cosy restaurants", "Museums and galleries", "Theatre"},
			Outdoor:        []string{"Skiing if there is snow", "Ice skating", "A short winter walk"},
			Recommendation: "It is cold. Prefer indoor activities or winter sports.",
		}
	case t < 20:
		return Plan{
			Indoor:         []string{"Gym", "Cafés", "Museums"},
			Outdoor:        []string{"A walk in the park", "Cycling", "Gardens", "Picnic", "Golf"},
			Recommendation: "Mild weather, good for moderate outdoor activities.",
		}
	case t < 30:
		return Plan{
			Outdoor:        []string{"Picnic in the park", "Cycling", "Hiking", "Water sports", "Beach", "Tennis", "Running", "Outdoor yoga"},
			Indoor:         []string{"Indoor pool"},
			Recommendation: "Ideal weather for outdoor activities.",
		}
	default:
		return Plan{
			Outdoor:        []string{"Beach and swimming", "Water sports", "Activities near water"},
			Indoor:         []string{"Air conditioned pool", "Museums", "Cinema", "Shopping centres"},
			Recommendation: "It is very hot. Stay near water or somewhere air conditioned.",
		}
	}
}

type activitiesAgent struct {
	memo *cache.T
}

func newActivities(env *Environment) Agent {
	return &activitiesAgent{memo: env.WeatherCache}
}

func (a *activitiesAgent) Kind() Kind {
	return Activities
}

func (a *activitiesAgent) Describe() Description {
	return Description{
		Name:         "Activities Agent",
		Description:  "Activity planning from weather and fashion",
		Capabilities: []string{"activity_planning", "indoor_outdoor", "weather_based_plans"},
		DependsOn:    []Kind{Weather, Fashion},
	}
}

func (a *activitiesAgent) Answer(ctx context.Context, query string) (*Reply, error) {
	city := CityFrom(query)
	if defaultCity == city {
		city = "new york"
	}
	c := lookupWeather(a.memo, city)
	p := PlanActivities(c)

	return &Reply{
		AgentName: "Activities Agent",
		Answer: fmt.Sprintf("Plan for %s. Outdoor: %s. Indoor: %s. %s",
			city, strings.Join(p.Outdoor, ", "), strings.Join(p.Indoor, ", "), p.Recommendation),
		Data: struct {
			City       string     `json:"city"`
			Weather    Conditions `json:"weather"`
			Activities Plan       `json:"activities"`
			Fashion    Outfit     `json:"fashionAdvice"`
		}{city, c, p, AdviseOutfit(c)},
		Timestamp: time.Now().UTC(),
	}, nil
}
