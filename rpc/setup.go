// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/rpc/admission"
	"github.com/bitmark-inc/agenthub/rpc/certificate"
	"github.com/bitmark-inc/logger"
)

const (
	serverName      = "http_rpc"
	readTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// WriteTimeout - the longest a request may take, verification included
const WriteTimeout = admission.DefaultVerifyTimeout + 25*time.Second

// ClaimReserveTTL - a reserved claim outlives any request holding it
const ClaimReserveTTL = 2 * WriteTimeout

// RateLimitConfiguration - requests per window (seconds) for each client
type RateLimitConfiguration struct {
	Requests int `gluamapper:"requests" json:"requests"`
	Window   int `gluamapper:"window" json:"window"`
}

// HTTPSConfiguration - configuration file data for HTTP(S) setup
//
// TLS is used when both certificate and private_key are set
type HTTPSConfiguration struct {
	MaximumConnections uint64                 `gluamapper:"maximum_connections" json:"maximum_connections"`
	Listen             []string               `gluamapper:"listen" json:"listen"`
	Certificate        string                 `gluamapper:"certificate" json:"certificate"`
	PrivateKey         string                 `gluamapper:"private_key" json:"private_key"`
	Allow              map[string][]string    `gluamapper:"allow" json:"allow"`
	RateLimit          RateLimitConfiguration `gluamapper:"rate_limit" json:"rate_limit"`
}

// globals
type rpcData struct {
	sync.RWMutex // to allow locking

	log *logger.L // logger

	servers []*http.Server

	// set once during initialise
	initialised bool
}

// global data
var globalData rpcData

// Initialise - start the listeners serving the hub
func Initialise(configuration *HTTPSConfiguration, hub *Hub) error {

	globalData.Lock()
	defer globalData.Unlock()

	// no need to start if already started
	if globalData.initialised {
		return fault.AlreadyInitialised
	}

	log := logger.New("rpc")
	globalData.log = log
	log.Info("starting…")

	if 0 == len(configuration.Listen) {
		log.Infof("disable: %s", serverName)
		globalData.initialised = true
		return nil
	}

	if configuration.MaximumConnections < 1 {
		log.Errorf("invalid %s maximum connection limit: %d", serverName, configuration.MaximumConnections)
		return fault.MissingParameters
	}

	var tlsConfiguration *tls.Config
	if "" != configuration.Certificate || "" != configuration.PrivateKey {
		c, fingerprint, err := certificate.Load(log, serverName, configuration.Certificate, configuration.PrivateKey)
		if nil != err {
			return err
		}
		log.Infof("%s: SHA3-256 fingerprint: %x", serverName, fingerprint)
		tlsConfiguration = c
	} else {
		log.Warnf("%s: no certificate, serving plain HTTP", serverName)
	}

	allow, err := parseAllow(configuration.Allow)
	if nil != err {
		return err
	}

	handler := NewHandler(log, hub, allow, configuration.MaximumConnections)

	servers := make([]*http.Server, 0, len(configuration.Listen))
	for _, listen := range configuration.Listen {
		if '*' == listen[0] {
			// change "*:PORT" to "[::]:PORT"
			// on the assumption that this will listen on tcp4 and tcp6
			listen = "[::]" + ":" + strings.Split(listen, ":")[1]
		}

		ln, err := net.Listen("tcp", listen)
		if nil != err {
			shutdown(servers)
			return err
		}
		log.Infof("starting server: %s on: %q", serverName, ln.Addr())

		s := newServer(listen, handler)
		servers = append(servers, s)
		go serve(log, s, ln.(*net.TCPListener), tlsConfiguration)
	}

	globalData.servers = servers
	globalData.initialised = true

	return nil
}

// Finalise - stop all listeners
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	shutdown(globalData.servers)
	globalData.servers = nil

	// finally...
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()

	return nil
}

// create access control and format strings to match http.Request.RemoteAddr
func parseAllow(allow map[string][]string) (map[string][]*net.IPNet, error) {
	local := make(map[string][]*net.IPNet)
	for path, addresses := range allow {
		set := make([]*net.IPNet, len(addresses))
		local[path] = set
		for i, ip := range addresses {
			_, cidr, err := net.ParseCIDR(strings.Trim(ip, " "))
			if nil != err {
				return nil, err
			}
			set[i] = cidr
		}
	}
	return local, nil
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    readTimeout,
		WriteTimeout:   WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func serve(log *logger.L, s *http.Server, ln *net.TCPListener, cfg *tls.Config) {
	var l net.Listener = tcpKeepAliveListener{ln}
	if nil != cfg {
		cfg.NextProtos = []string{"http/1.1"}
		l = tls.NewListener(l, cfg)
	}

	err := s.Serve(l)
	if nil != err && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("server: %s  error: %s", s.Addr, err)
	}
}

func shutdown(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range servers {
		_ = s.Shutdown(ctx)
	}
}

type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if nil != err {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
