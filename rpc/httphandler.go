// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bitmark-inc/agenthub/agent"
	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/counter"
	"github.com/bitmark-inc/agenthub/currency/ethereum"
	"github.com/bitmark-inc/agenthub/currency/units"
	"github.com/bitmark-inc/agenthub/ledger/local"
	"github.com/bitmark-inc/agenthub/payment"
	"github.com/bitmark-inc/agenthub/rpc/admission"
	"github.com/bitmark-inc/logger"
)

// largest JSON body accepted by the free endpoints
const maximumBody = 1 << 16

// the argument passed to the handlers
type httpHandler struct {
	log                *logger.L
	hub                *Hub
	start              time.Time
	allow              map[string][]*net.IPNet
	maximumConnections uint64
	connections        counter.Counter
	router             chi.Router
	paid               map[agent.Kind]http.Handler
}

// NewHandler - all routes of the hub
//
// allow maps a route group ("health", "payments") to the networks
// permitted to use it; groups without an entry are open
func NewHandler(log *logger.L, hub *Hub, allow map[string][]*net.IPNet, maximumConnections uint64) http.Handler {
	h := &httpHandler{
		log:                log,
		hub:                hub,
		start:              time.Now(),
		allow:              allow,
		maximumConnections: maximumConnections,
		paid:               make(map[agent.Kind]http.Handler),
	}

	for _, kind := range hub.Registry.Kinds() {
		a, _ := hub.Registry.Get(kind)
		var paid http.Handler = hub.Gate.Require(h.resource(kind), h.answer(a))
		if nil != hub.Limiter {
			paid = hub.Limiter.Handler(paid)
		}
		h.paid[kind] = paid
	}

	r := chi.NewRouter()
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)
	r.Get("/health", h.health)
	r.Get("/agents", h.agents)
	r.Route("/agents/{kind}", func(r chi.Router) {
		r.Get("/info", h.info)
		r.Post("/query", h.query)
	})
	r.Post("/payments/verify", h.verify)
	r.Post("/payments/create", h.create)
	h.router = r

	return h
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := h.connections.Increment()
	defer h.connections.Decrement()

	if h.maximumConnections > 0 && n > h.maximumConnections {
		h.log.Warnf("connection limit: %d reached", h.maximumConnections)
		sendUnavailable(w, "too many connections")
		return
	}
	h.router.ServeHTTP(w, r)
}

// this matches anything not matched and returns error
func (h *httpHandler) notFound(w http.ResponseWriter, r *http.Request) {
	sendNotFound(w)
}

func (h *httpHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendMethodNotAllowed(w)
}

func (h *httpHandler) allowed(group string, r *http.Request) bool {
	networks, ok := h.allow[group]
	if !ok {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if nil != err {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if nil != ip {
		for _, n := range networks {
			if n.Contains(ip) {
				return true
			}
		}
	}
	h.log.Warnf("deny access: %q  group: %s", r.RemoteAddr, group)
	return false
}

func (h *httpHandler) health(w http.ResponseWriter, r *http.Request) {
	if !h.allowed("health", r) {
		sendForbidden(w)
		return
	}

	type theReply struct {
		Status      string                   `json:"status"`
		Version     string                   `json:"version"`
		Chain       string                   `json:"chain"`
		Mode        string                   `json:"mode"`
		Currency    string                   `json:"currency"`
		Uptime      string                   `json:"uptime"`
		Connections uint64                   `json:"connections"`
		Caches      map[string]cache.Stats   `json:"caches"`
		Admission   admission.Stats          `json:"admission"`
		Verifier    *payment.VerifierStats   `json:"verifier,omitempty"`
		Settlement  *payment.SettlementStats `json:"settlement,omitempty"`
		Requests    *agent.JournalStats      `json:"requests,omitempty"`
		RateLimited uint64                   `json:"rateLimited"`
		LedgerSeen  *uint64                  `json:"ledgerEventsSeen,omitempty"`
	}

	hub := h.hub
	reply := theReply{
		Status:      "healthy",
		Version:     hub.Version,
		Chain:       hub.Chain,
		Mode:        hub.Mode,
		Currency:    hub.Catalogue.Currency().String(),
		Uptime:      time.Since(h.start).Truncate(time.Second).String(),
		Connections: h.connections.Uint64(),
		Caches:      make(map[string]cache.Stats, len(hub.Caches)),
		Admission:   hub.Gate.Stats(),
	}
	for _, c := range hub.Caches {
		reply.Caches[c.Name()] = c.Stats()
	}
	if nil != hub.Verifier {
		s := hub.Verifier.Stats()
		reply.Verifier = &s
	}
	if nil != hub.Settlement {
		s := hub.Settlement.Stats()
		reply.Settlement = &s
	}
	if nil != hub.Journal {
		s := hub.Journal.Stats()
		reply.Requests = &s
	}
	if nil != hub.Limiter {
		reply.RateLimited = hub.Limiter.Rejected()
	}
	if nil != hub.Watcher {
		seen := hub.Watcher.Seen()
		reply.LedgerSeen = &seen
	}

	sendReply(w, reply)
}

// one catalogue entry
type agentEntry struct {
	Kind     agent.Kind `json:"kind"`
	Price    string     `json:"price"`
	Currency string     `json:"currency"`
	Wallet   string     `json:"walletAddress"`
	agent.Description
	Cities []string `json:"availableCities,omitempty"`
}

func (h *httpHandler) entry(a agent.Agent) agentEntry {
	p, _ := h.hub.Catalogue.Get(a.Kind())
	e := agentEntry{
		Kind:        a.Kind(),
		Price:       p.Price,
		Currency:    h.hub.Catalogue.Currency().String(),
		Wallet:      p.Wallet,
		Description: a.Describe(),
	}
	if agent.Weather == a.Kind() {
		e.Cities = agent.Cities()
	}
	return e
}

func (h *httpHandler) agents(w http.ResponseWriter, r *http.Request) {

	list := make([]agentEntry, 0, len(h.paid))
	for _, kind := range h.hub.Registry.Kinds() {
		a, _ := h.hub.Registry.Get(kind)
		list = append(list, h.entry(a))
	}
	sendReply(w, list)
}

// the agent named in the path
func (h *httpHandler) agentFrom(r *http.Request) (agent.Agent, bool) {
	kind, err := agent.KindFromString(chi.URLParam(r, "kind"))
	if nil != err {
		return nil, false
	}
	return h.hub.Registry.Get(kind)
}

func (h *httpHandler) info(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agentFrom(r)
	if !ok {
		sendNotFound(w)
		return
	}
	sendReply(w, h.entry(a))
}

func (h *httpHandler) query(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agentFrom(r)
	if !ok {
		sendNotFound(w)
		return
	}
	h.paid[a.Kind()].ServeHTTP(w, r)
}

// what a query of this kind costs right now
func (h *httpHandler) resource(kind agent.Kind) func() admission.Resource {
	return func() admission.Resource {
		p, _ := h.hub.Catalogue.Get(kind)
		return admission.Resource{
			Recipient: p.Wallet,
			Price:     p.Price,
			Currency:  h.hub.Catalogue.Currency().String(),
			Network:   h.hub.Chain,
			Processor: h.hub.Processor,
		}
	}
}

// the paid part, only reached through the admission gate
func (h *httpHandler) answer(a agent.Agent) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Query string `json:"query"`
			City  string `json:"city"`
		}
		if err := decodeBody(r, &request); nil != err {
			sendBadRequest(w, "invalid JSON body")
			return
		}
		q := request.Query
		if "" == q {
			q = request.City
		}

		details, _ := admission.DetailsFrom(r.Context())
		paymentID, amount := "", uint64(0)
		if nil != details {
			paymentID = details.PaymentID
			amount = details.BaseUnits()
		}

		answer, err := a.Answer(r.Context(), q)
		if nil != h.hub.Journal {
			h.hub.Journal.Record(a.Kind(), paymentID, amount, err)
		}
		if nil != err {
			h.log.Errorf("%s query error: %s", a.Kind(), err)
			sendInternalServerError(w)
			return
		}

		p, _ := h.hub.Catalogue.Get(a.Kind())
		sendReply(w, struct {
			Success bool             `json:"success"`
			Agent   agent.Kind       `json:"agent"`
			Cost    string           `json:"cost"`
			Payment *payment.Details `json:"payment"`
			*agent.Reply
		}{
			Success: true,
			Agent:   a.Kind(),
			Cost:    p.Price + " " + h.hub.Catalogue.Currency().String(),
			Payment: details,
			Reply:   answer,
		})
	})
}

// verification without reserving or spending the payment
func (h *httpHandler) verify(w http.ResponseWriter, r *http.Request) {
	if nil == h.hub.Verifier {
		sendUnavailable(w, "payment verification is disabled")
		return
	}

	var request struct {
		PaymentID    string `json:"paymentId"`
		Agent        string `json:"agent"`
		AgentAddress string `json:"agentAddress"`
		Amount       string `json:"amount"`
	}
	if err := decodeBody(r, &request); nil != err {
		sendBadRequest(w, "invalid JSON body")
		return
	}
	if "" == request.PaymentID {
		sendBadRequest(w, "paymentId is required")
		return
	}

	if "" != request.Agent {
		kind, err := agent.KindFromString(request.Agent)
		if nil != err {
			sendBadRequest(w, err.Error())
			return
		}
		p, _ := h.hub.Catalogue.Get(kind)
		if "" == request.AgentAddress {
			request.AgentAddress = p.Wallet
		}
		if "" == request.Amount {
			request.Amount = p.Price
		}
	}

	if "" == request.AgentAddress || "" == request.Amount {
		sendReply(w, struct {
			PaymentID string `json:"paymentId"`
			Exists    bool   `json:"exists"`
		}{
			PaymentID: request.PaymentID,
			Exists:    h.hub.Verifier.IsPaymentVerified(r.Context(), request.PaymentID),
		})
		return
	}

	result := h.hub.Verifier.VerifyPayment(r.Context(), request.PaymentID, request.AgentAddress, request.Amount)
	if result.IsLedgerFailure() {
		sendStatus(w, http.StatusInternalServerError, result)
		return
	}
	sendReply(w, result)
}

// record a new payment on the local development ledger
func (h *httpHandler) create(w http.ResponseWriter, r *http.Request) {
	if nil == h.hub.Creator {
		sendUnavailable(w, "payments can only be created on the local chain")
		return
	}
	if !h.allowed("payments", r) {
		sendForbidden(w)
		return
	}

	var request struct {
		Payer        string `json:"payer"`
		Agent        string `json:"agent"`
		AgentAddress string `json:"agentAddress"`
		Amount       string `json:"amount"`
		ServiceID    string `json:"serviceId"`
	}
	if err := decodeBody(r, &request); nil != err {
		sendBadRequest(w, "invalid JSON body")
		return
	}

	if "" != request.Agent {
		kind, err := agent.KindFromString(request.Agent)
		if nil != err {
			sendBadRequest(w, err.Error())
			return
		}
		p, _ := h.hub.Catalogue.Get(kind)
		if "" == request.AgentAddress {
			request.AgentAddress = p.Wallet
		}
		if "" == request.Amount {
			request.Amount = p.Price
		}
		if "" == request.ServiceID {
			request.ServiceID = kind.String()
		}
	}

	payer, err := ethereum.ValidateAddress(request.Payer)
	if nil != err {
		sendBadRequest(w, "payer: "+err.Error())
		return
	}
	recipient, err := ethereum.ValidateAddress(request.AgentAddress)
	if nil != err {
		sendBadRequest(w, "agent: "+err.Error())
		return
	}
	decimals := h.hub.Catalogue.Currency().Decimals()
	amount, err := units.Parse(request.Amount, decimals)
	if nil != err || 0 == amount {
		sendBadRequest(w, "invalid amount")
		return
	}

	record, err := h.hub.Creator.Create(r.Context(), local.Payment{
		Payer:     payer,
		Agent:     recipient,
		Amount:    amount,
		ServiceID: request.ServiceID,
	})
	if nil != err {
		h.log.Errorf("create payment error: %s", err)
		sendInternalServerError(w)
		return
	}

	sendReply(w, payment.Details{
		PaymentID: record.PaymentID,
		Payer:     record.Payer,
		Agent:     record.Agent,
		Amount:    units.Format(record.Amount, decimals),
		Currency:  h.hub.Catalogue.Currency().String(),
		Timestamp: record.Timestamp.Unix(),
		Completed: record.Completed,
	})
}

// an empty body leaves the request zero valued
func decodeBody(r *http.Request, request interface{}) error {
	if nil == r.Body {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maximumBody))
	if nil != err {
		return err
	}
	if 0 == len(strings.TrimSpace(string(body))) {
		return nil
	}
	return json.Unmarshal(body, request)
}
