// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bitmark-inc/agenthub/cache"
)

// Conditions - one weather observation
type Conditions struct {
	City        string `json:"city"`
	Temperature int    `json:"temperature"`
	Condition   string `json:"condition"`
	Humidity    int    `json:"humidity"`
	Wind        int    `json:"windSpeed"`
}

// IsRainy - true when rain gear is needed
func (c Conditions) IsRainy() bool {
	return strings.Contains(strings.ToLower(c.Condition), "rain")
}

const defaultCity = "default"

var weatherTable = map[string]Conditions{
	"new york":  {Temperature: 22, Condition: "Sunny", Humidity: 65, Wind: 15},
	"london":    {Temperature: 15, Condition: "Cloudy", Humidity: 78, Wind: 20},
	"tokyo":     {Temperature: 28, Condition: "Rainy", Humidity: 85, Wind: 10},
	"paris":     {Temperature: 18, Condition: "Partly cloudy", Humidity: 70, Wind: 12},
	"miami":     {Temperature: 30, Condition: "Sunny", Humidity: 80, Wind: 8},
	defaultCity: {Temperature: 20, Condition: "Mild", Humidity: 60, Wind: 10},
}

var cityPattern = regexp.MustCompile(`(?i)(new york|london|tokyo|paris|miami)`)

// CityFrom - first known city named in free text, else "default"
func CityFrom(query string) string {
	m := cityPattern.FindStringSubmatch(query)
	if nil == m {
		return defaultCity
	}
	return strings.ToLower(m[1])
}

// Cities - the cities with their own data
func Cities() []string {
	return []string{"new york", "london", "tokyo", "paris", "miami"}
}

type weatherAgent struct {
	memo *cache.T
}

func newWeather(env *Environment) Agent {
	return &weatherAgent{memo: env.WeatherCache}
}

func (w *weatherAgent) Kind() Kind {
	return Weather
}

func (w *weatherAgent) Describe() Description {
	return Description{
		Name:         "Weather Agent",
		Description:  "Weather data provider",
		Capabilities: []string{"weather_data", "temperature", "humidity", "wind_speed"},
	}
}

func (w *weatherAgent) Answer(ctx context.Context, query string) (*Reply, error) {
	c := lookupWeather(w.memo, CityFrom(query))
	return &Reply{
		AgentName: "Weather Agent",
		Answer:    fmt.Sprintf("Condition: %s, temperature %d°C, humidity %d%%, wind %d km/h", c.Condition, c.Temperature, c.Humidity, c.Wind),
		Data:      c,
		Timestamp: time.Now().UTC(),
	}, nil
}

// memoised so dependent agents share one lookup per city
func lookupWeather(memo *cache.T, city string) Conditions {
	if nil != memo {
		if value, ok := memo.Get(city); ok {
			return value.(Conditions)
		}
	}

	c, ok := weatherTable[city]
	if !ok {
		c = weatherTable[defaultCity]
	}
	c.City = city

	if nil != memo {
		memo.Set(city, c)
	}
	return c
}
