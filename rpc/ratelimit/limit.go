// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ratelimit - per client request limiting for the HTTP surface
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/logger"
)

// defaults: 100 requests in any 15 minute window per client
const (
	DefaultRequests = 100
	DefaultWindow   = 15 * time.Minute
)

const limitedMessage = "Too many requests, please try again later."

// Limit - admit a single request without waiting
func Limit(limiter *rate.Limiter) error {
	r := limiter.Reserve()
	if !r.OK() {
		return fault.RateLimiting
	}
	if r.Delay() > 0 {
		r.Cancel()
		return fault.RateLimiting
	}
	return nil
}

// Limiter - one token bucket per client address
type Limiter struct {
	log      *logger.L
	clients  *cache.T
	every    rate.Limit
	burst    int
	rejected counter.Counter
}

// New - requests per window for each client
func New(log *logger.L, clients *cache.T, requests int, window time.Duration) *Limiter {
	if requests <= 0 {
		requests = DefaultRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		log:     log,
		clients: clients,
		every:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
	}
}

// Handler - wrap next with the limit
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddress(r)
		if err := Limit(l.limiter(client)); nil != err {
			l.rejected.Increment()
			l.log.Warnf("client: %s  error: %s", client, err)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"code":  http.StatusTooManyRequests,
				"error": limitedMessage,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Rejected - number of requests refused so far
func (l *Limiter) Rejected() uint64 {
	return l.rejected.Uint64()
}

// an idle client's bucket is full again once its cache entry expires
func (l *Limiter) limiter(client string) *rate.Limiter {
	if value, ok := l.clients.Get(client); ok {
		return value.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.every, l.burst)
	if !l.clients.Add(client, limiter, 0) {
		if value, ok := l.clients.Get(client); ok {
			return value.(*rate.Limiter)
		}
	}
	return limiter
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if nil != err {
		return r.RemoteAddr
	}
	return host
}
