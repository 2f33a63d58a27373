// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package admission

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bitmark-inc/agenthub/payment"
)

type paymentTerms struct {
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	Network          string `json:"network"`
	AgentAddress     string `json:"agentAddress"`
	ProcessorAddress string `json:"paymentProcessorAddress,omitempty"`
}

type missingReply struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Code    string       `json:"code"`
	Payment paymentTerms `json:"payment"`
}

type invalidReply struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Reason  payment.Reason `json:"reason"`
}

type contextKey struct{}

func withDetails(ctx context.Context, details *payment.Details) context.Context {
	return context.WithValue(ctx, contextKey{}, details)
}

// DetailsFrom - the verified payment of an admitted request
func DetailsFrom(ctx context.Context) (*payment.Details, bool) {
	details, ok := ctx.Value(contextKey{}).(*payment.Details)
	return details, ok && nil != details
}

// remembers the status the handler chose
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	if 0 == s.status {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(data []byte) (int, error) {
	if 0 == s.status {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(data)
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	text, err := json.Marshal(data)
	if nil != err {
		http.Error(w, `{"code":500,"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write(text)
}
