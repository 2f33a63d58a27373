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

// Outfit - clothing advice for some weather
type Outfit struct {
	Clothes     []string `json:"outfit"`
	Accessories []string `json:"accessories"`
	Footwear    string   `json:"footwear"`
	Tip         string   `json:"tip"`
}

// AdviseOutfit - clothing for the given conditions
func AdviseOutfit(c Conditions) Outfit {
	var o Outfit

	switch t := c.Temperature; {
	case t < 10:
		o.Clothes = []string{"Heavy coat", "Wool sweater", "Long trousers", "Thermal layer"}
		o.Accessories = []string{"Scarf", "Gloves", "Hat"}
		o.Footwear = "Sturdy boots"
	case t < 18:
		o.Clothes = []string{"Light jacket", "Sweater", "Trousers or jeans"}
		o.Accessories = []string{"Light scarf"}
		o.Footwear = "Closed shoes"
	case t < 25:
		o.Clothes = []string{"Long sleeve shirt", "Light trousers"}
		o.Accessories = []string{"Sunglasses"}
		o.Footwear = "Trainers"
	default:
		o.Clothes = []string{"Light t-shirt", "Shorts or skirt", "Cotton clothing"}
		o.Accessories = []string{"Sunglasses", "Hat"}
		o.Footwear = "Sandals or open shoes"
	}

	if c.IsRainy() {
		o.Accessories = append(o.Accessories, "Umbrella", "Raincoat")
		o.Footwear = "Rain boots"
	}
	if c.Humidity > 75 {
		o.Clothes = append(o.Clothes, "Breathable fabrics")
	}

	switch {
	case c.Temperature > 25:
		o.Tip = "Wear sunscreen"
	case c.Temperature < 15:
		o.Tip = "Bring extra layers"
	default:
		o.Tip = "Ideal weather for any style"
	}
	return o
}

type fashionAgent struct {
	memo *cache.T
}

func newFashion(env *Environment) Agent {
	return &fashionAgent{memo: env.WeatherCache}
}

func (f *fashionAgent) Kind() Kind {
	return Fashion
}

func (f *fashionAgent) Describe() Description {
	return Description{
		Name:         "Fashion Agent",
		Description:  "Weather based fashion advice",
		Capabilities: []string{"fashion_advice", "outfit_recommendation", "weather_based_styling"},
		DependsOn:    []Kind{Weather},
	}
}

func (f *fashionAgent) Answer(ctx context.Context, query string) (*Reply, error) {
	c := lookupWeather(f.memo, CityFrom(query))
	o := AdviseOutfit(c)

	return &Reply{
		AgentName: "Fashion Agent",
		Answer: fmt.Sprintf("Weather: %s, %d°C. Wear: %s. Accessories: %s. Footwear: %s. %s",
			c.Condition, c.Temperature,
			strings.Join(o.Clothes, ", "), strings.Join(o.Accessories, ", "), o.Footwear, o.Tip),
		Data: struct {
			Weather Conditions `json:"weather"`
			Outfit  Outfit     `json:"recommendations"`
		}{c, o},
		Timestamp: time.Now().UTC(),
	}, nil
}
