// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitmark-inc/agenthub/agent"
	"github.com/bitmark-inc/agenthub/chain"
	"github.com/bitmark-inc/agenthub/currency"
	"github.com/bitmark-inc/agenthub/currency/ethereum"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/rpc"
	"github.com/bitmark-inc/agenthub/util"
	"github.com/bitmark-inc/logger"
)

// payment modes
const (
	ModeLedger = "ledger"
	ModeDemo   = "demo"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultLevelDBDirectory = "data"
	defaultLocalDatabase    = chain.Local + ".leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "agenthubd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultListen      = "127.0.0.1:3000"
	defaultConnections = 100

	defaultCacheTTL        = 600
	defaultSweepInterval   = 300
	defaultVerificationTTL = 600
	defaultClaimTTL        = 3600
	defaultLedgerTimeout   = 15
	defaultWatchInterval   = 60
	defaultSettleQueue     = 100
	defaultSettleTimeout   = 120
	defaultRateRequests    = 100
	defaultRateWindow      = 900
)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

var defaultLogLevels = LoglevelMap{
	logger.DefaultTag: "critical",
}

// DatabaseType - leveldb for the local chain
type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

// LedgerType - connection to an on-chain payment processor
type LedgerType struct {
	RPCURL           string `gluamapper:"rpc_url" json:"rpc_url"`
	PaymentProcessor string `gluamapper:"payment_processor" json:"payment_processor"`
	PrivateKey       string `gluamapper:"private_key" json:"-"`
	Timeout          int    `gluamapper:"timeout" json:"timeout"`
	WatchInterval    int    `gluamapper:"watch_interval" json:"watch_interval"`
}

// CacheType - lifetimes in seconds
type CacheType struct {
	DefaultTTL      int `gluamapper:"default_ttl" json:"default_ttl"`
	SweepInterval   int `gluamapper:"sweep_interval" json:"sweep_interval"`
	VerificationTTL int `gluamapper:"verification_ttl" json:"verification_ttl"`
	ClaimTTL        int `gluamapper:"claim_ttl" json:"claim_ttl"`
}

// SettlementType - background settlement
type SettlementType struct {
	Enabled   bool `gluamapper:"enabled" json:"enabled"`
	QueueSize int  `gluamapper:"queue_size" json:"queue_size"`
	Timeout   int  `gluamapper:"timeout" json:"timeout"`
}

// AgentType - price and wallet of one agent kind
type AgentType struct {
	Price  string `gluamapper:"price" json:"price"`
	Wallet string `gluamapper:"wallet" json:"wallet"`
}

// Configuration - everything the daemon reads at start
type Configuration struct {
	DataDirectory string `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string `gluamapper:"pidfile" json:"pidfile"`
	Chain         string `gluamapper:"chain" json:"chain"`
	Currency      string `gluamapper:"currency" json:"currency"`
	PaymentMode   string `gluamapper:"payment_mode" json:"payment_mode"`

	Database   DatabaseType           `gluamapper:"database" json:"database"`
	Ledger     LedgerType             `gluamapper:"ledger" json:"ledger"`
	Cache      CacheType              `gluamapper:"cache" json:"cache"`
	Settlement SettlementType         `gluamapper:"settlement" json:"settlement"`
	HTTPS      rpc.HTTPSConfiguration `gluamapper:"https" json:"https"`
	Agents     map[string]AgentType   `gluamapper:"agents" json:"agents"`
	Logging    logger.Configuration   `gluamapper:"logging" json:"logging"`
}

// Get - read, decode and verify the configuration
func Get(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}
	if !util.EnsureFileExists(configurationFileName) {
		return nil, fault.ConfigurationFileNotExists
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := defaults()

	if err := ParseConfigurationFile(configurationFileName, options); nil != err {
		return nil, err
	}

	if err := applyEnvironment(options, os.LookupEnv); nil != err {
		return nil, err
	}

	if err := options.validate(); nil != err {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("path: %q is not a valid directory: %w", options.DataDirectory, fault.InvalidDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if err := util.EnsureDirectory(options.DataDirectory, false); nil != err {
		return nil, err
	}

	// optional absolute paths i.e. blank or an absolute path
	for _, f := range []*string{
		&options.PidFile,
		&options.HTTPS.Certificate,
		&options.HTTPS.PrivateKey,
	} {
		if "" != *f {
			*f = util.EnsureAbsolute(options.DataDirectory, *f)
		}
	}

	// database name must be a plain name inside its directory
	switch filepath.Dir(options.Database.Name) {
	case "", ".":
	default:
		return nil, fmt.Errorf("files: %q is not plain name: %w", options.Database.Name, fault.InvalidDirectory)
	}
	if filepath.Dir(options.Logging.File) != "." {
		return nil, fmt.Errorf("files: %q is not plain name: %w", options.Logging.File, fault.InvalidDirectory)
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	} {
		*d = util.EnsureAbsolute(options.DataDirectory, *d)
		if err := util.EnsureDirectory(*d, true); nil != err {
			return nil, err
		}
	}
	options.Database.Name = util.EnsureAbsolute(options.Database.Directory, options.Database.Name)

	return options, nil
}

func defaults() *Configuration {
	return &Configuration{
		DataDirectory: defaultDataDirectory,
		Chain:         chain.Local,
		Currency:      currency.USDC.String(),
		PaymentMode:   ModeLedger,

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
			Name:      defaultLocalDatabase,
		},

		Ledger: LedgerType{
			Timeout:       defaultLedgerTimeout,
			WatchInterval: defaultWatchInterval,
		},

		Cache: CacheType{
			DefaultTTL:      defaultCacheTTL,
			SweepInterval:   defaultSweepInterval,
			VerificationTTL: defaultVerificationTTL,
			ClaimTTL:        defaultClaimTTL,
		},

		Settlement: SettlementType{
			Enabled:   true,
			QueueSize: defaultSettleQueue,
			Timeout:   defaultSettleTimeout,
		},

		HTTPS: rpc.HTTPSConfiguration{
			MaximumConnections: defaultConnections,
			Listen:             []string{defaultListen},
			RateLimit: rpc.RateLimitConfiguration{
				Requests: defaultRateRequests,
				Window:   defaultRateWindow,
			},
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}
}

func (options *Configuration) validate() error {
	options.Chain = strings.ToLower(options.Chain)
	details, ok := chain.Get(options.Chain)
	if !ok {
		return fmt.Errorf("chain: %q is not supported: %w", options.Chain, fault.InvalidChain)
	}

	if _, err := currency.FromString(options.Currency); nil != err {
		return err
	}

	options.PaymentMode = strings.ToLower(options.PaymentMode)
	switch options.PaymentMode {
	case ModeLedger, ModeDemo:
	default:
		return fault.InvalidLedgerMode
	}

	for _, n := range []int{
		options.Cache.DefaultTTL,
		options.Cache.SweepInterval,
		options.Cache.VerificationTTL,
		options.Cache.ClaimTTL,
		options.Ledger.Timeout,
		options.Settlement.Timeout,
	} {
		if n <= 0 {
			return fault.InvalidDuration
		}
	}

	if !chain.IsLocal(options.Chain) && ModeLedger == options.PaymentMode {
		if "" == options.Ledger.RPCURL {
			options.Ledger.RPCURL = details.DefaultRPC
		}
		if _, err := ethereum.ValidateAddress(options.Ledger.PaymentProcessor); nil != err {
			return fmt.Errorf("payment processor: %q: %w", options.Ledger.PaymentProcessor, err)
		}
	}

	if _, err := options.Pricing(); nil != err {
		return err
	}
	return nil
}

// CurrencyValue - the configured currency, already validated
func (options *Configuration) CurrencyValue() currency.Currency {
	c, err := currency.FromString(options.Currency)
	if nil != err {
		logger.Panicf("configuration: currency: %q  error: %s", options.Currency, err)
	}
	return c
}

// Pricing - agent prices, defaults for kinds not configured
func (options *Configuration) Pricing() (map[agent.Kind]agent.Pricing, error) {
	pricing := agent.DefaultPricing()
	for name, a := range options.Agents {
		kind, err := agent.KindFromString(name)
		if nil != err {
			return nil, fmt.Errorf("agent: %q: %w", name, err)
		}
		p := pricing[kind]
		if "" != a.Price {
			p.Price = a.Price
		}
		if "" != a.Wallet {
			p.Wallet = a.Wallet
		}
		pricing[kind] = p
	}

	if _, err := agent.NewCatalogue(options.CurrencyValue(), pricing); nil != err {
		return nil, err
	}
	return pricing, nil
}

// Seconds - convert a configured number of seconds
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
