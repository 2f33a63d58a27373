// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/agenthub/agent"
	"github.com/bitmark-inc/agenthub/background"
	"github.com/bitmark-inc/agenthub/cache"
	"github.com/bitmark-inc/agenthub/configuration"
	"github.com/bitmark-inc/agenthub/payment"
	"github.com/bitmark-inc/agenthub/rpc"
	"github.com/bitmark-inc/agenthub/rpc/admission"
	"github.com/bitmark-inc/agenthub/rpc/ratelimit"
	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
		{Long: "demo", HasArg: getoptions.NO_ARGUMENT, Short: 'd'},
		{Long: "memory-stats", HasArg: getoptions.NO_ARGUMENT, Short: 'm'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		processSetupCommand(program, []string{"version"})
		return
	}

	if len(options["help"]) > 0 {
		processSetupCommand(program, []string{"help"})
		return
	}

	// these commands do not require the configuration
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := configuration.Get(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// demo mode must always be asked for explicitly, either here or in the file
	if len(options["demo"]) > 0 {
		theConfiguration.PaymentMode = configuration.ModeDemo
	}

	// these commands only inspect the configuration
	if len(arguments) > 0 && processConfigCommand(arguments, theConfiguration) {
		return
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("theConfiguration: %v", theConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	log.Infof("chain: %s", theConfiguration.Chain)
	log.Infof("payment mode: %s", theConfiguration.PaymentMode)
	log.Debugf("%s = %#v", "HTTPS", theConfiguration.HTTPS)

	c := theConfiguration.CurrencyValue()
	pricing, err := theConfiguration.Pricing()
	if nil != err {
		log.Criticalf("agent pricing error: %s", err)
		exitwithstatus.Message("agent pricing error: %s", err)
	}
	catalogue, err := agent.NewCatalogue(c, pricing)
	if nil != err {
		log.Criticalf("catalogue error: %s", err)
		exitwithstatus.Message("catalogue error: %s", err)
	}

	// caches, all swept by one background process
	verified := cache.New("verified", configuration.Seconds(theConfiguration.Cache.VerificationTTL))
	claimStore := cache.New("claims", rpc.ClaimReserveTTL)
	weather := cache.New("weather", configuration.Seconds(theConfiguration.Cache.DefaultTTL))
	clients := cache.New("clients", configuration.Seconds(theConfiguration.HTTPS.RateLimit.Window))
	caches := []*cache.T{verified, claimStore, weather, clients}

	journal := agent.NewJournal(agent.DefaultJournalSize)
	registry, err := agent.NewRegistry(&agent.Environment{
		WeatherCache: weather,
		Journal:      journal,
	})
	if nil != err {
		log.Criticalf("agent registry error: %s", err)
		exitwithstatus.Message("agent registry error: %s", err)
	}

	hub := &rpc.Hub{
		Version:   version,
		Chain:     theConfiguration.Chain,
		Mode:      theConfiguration.PaymentMode,
		Processor: theConfiguration.Ledger.PaymentProcessor,
		Catalogue: catalogue,
		Registry:  registry,
		Journal:   journal,
		Caches:    caches,
	}

	processes := background.Processes{
		cache.Cleaner(configuration.Seconds(theConfiguration.Cache.SweepInterval), caches...),
	}

	if configuration.ModeDemo == theConfiguration.PaymentMode {
		hub.Gate = admission.New(logger.New("admission"), nil, admission.Options{Demo: true})
	} else {
		conn, err := openLedger(theConfiguration)
		if nil != err {
			log.Criticalf("ledger open error: %s", err)
			exitwithstatus.Message("ledger open error: %s", err)
		}
		defer conn.Close()

		hub.Creator = conn.creator
		if nil != conn.watcher {
			hub.Watcher = conn.watcher
			processes = append(processes, conn.watcher)
		}

		hub.Verifier = payment.NewVerifier(logger.New("verifier"), conn.reader, verified, configuration.Seconds(theConfiguration.Cache.VerificationTTL), c)

		gateOptions := admission.Options{
			Claims: payment.NewClaims(logger.New("claims"), claimStore, rpc.ClaimReserveTTL, configuration.Seconds(theConfiguration.Cache.ClaimTTL)),
		}

		if theConfiguration.Settlement.Enabled && nil != conn.settler {
			hub.Settlement = payment.NewSettlement(
				logger.New("settlement"),
				conn.settler,
				theConfiguration.Settlement.QueueSize,
				configuration.Seconds(theConfiguration.Settlement.Timeout),
				hub.Verifier.Invalidate,
			)
			gateOptions.Settlement = hub.Settlement
			processes = append(processes, hub.Settlement)
		} else {
			log.Warn("settlement disabled")
		}

		hub.Gate = admission.New(logger.New("admission"), hub.Verifier, gateOptions)
	}

	if theConfiguration.HTTPS.RateLimit.Requests > 0 {
		hub.Limiter = ratelimit.New(
			logger.New("ratelimit"),
			clients,
			theConfiguration.HTTPS.RateLimit.Requests,
			configuration.Seconds(theConfiguration.HTTPS.RateLimit.Window),
		)
	}

	// agent prices follow edits of the configuration file
	reloader, err := configuration.NewWatcher(logger.New("config"), configurationFile, catalogue.Replace)
	if nil != err {
		log.Errorf("configuration watcher error: %s", err)
	} else {
		processes = append(processes, reloader)
	}

	running := background.Start(processes, nil)
	defer running.StopAndWait()

	// start up the rpc background processes
	err = rpc.Initialise(&theConfiguration.HTTPS, hub)
	if nil != err {
		log.Criticalf("rpc initialise error: %s", err)
		exitwithstatus.Message("rpc initialise error: %s", err)
	}
	defer rpc.Finalise()

	// if memory logging enabled
	if len(options["memory-stats"]) > 0 {
		go memstats()
	}

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
}
