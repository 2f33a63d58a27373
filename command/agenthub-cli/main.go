// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"
)

type metadata struct {
	url     string
	client  *http.Client
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {

	app := cli.NewApp()
	app.Name = "agenthub-cli"
	app.Usage = "query an agent hub and manage its payments"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:   "url, u",
			Value:  "http://127.0.0.1:3000",
			Usage:  " hub base `URL`",
			EnvVar: "AGENTHUB_URL",
		},
		cli.BoolFlag{
			Name:  "insecure, k",
			Usage: " accept a self-signed certificate",
		},
		cli.IntFlag{
			Name:  "timeout, t",
			Value: 30,
			Usage: " request timeout in `SECONDS`",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "health",
			Usage:  "show hub status and counters",
			Action: runHealth,
		},
		{
			Name:   "agents",
			Usage:  "list agents with their prices",
			Action: runAgents,
		},
		{
			Name:      "info",
			Usage:     "show one agent",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "agent, a",
					Value: "",
					Usage: "*agent `KIND`",
				},
			},
			Action: runInfo,
		},
		{
			Name:      "create-payment",
			Usage:     "record a payment on the local chain",
			ArgsUsage: "\n   (* = required, + = select one)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "payer, p",
					Value: "",
					Usage: "*payer `ADDRESS`",
				},
				cli.StringFlag{
					Name:  "agent, a",
					Value: "",
					Usage: "+pay this agent `KIND` its listed price",
				},
				cli.StringFlag{
					Name:  "to, r",
					Value: "",
					Usage: "+recipient `ADDRESS`",
				},
				cli.StringFlag{
					Name:  "amount, m",
					Value: "",
					Usage: " decimal `AMOUNT`, default is the agent price",
				},
				cli.StringFlag{
					Name:  "service, s",
					Value: "",
					Usage: " service `ID`",
				},
			},
			Action: runCreatePayment,
		},
		{
			Name:      "verify",
			Usage:     "check a payment without using it",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "payment-id, i",
					Value: "",
					Usage: "*payment `ID`",
				},
				cli.StringFlag{
					Name:  "agent, a",
					Value: "",
					Usage: " check against this agent `KIND`",
				},
				cli.StringFlag{
					Name:  "to, r",
					Value: "",
					Usage: " expected recipient `ADDRESS`",
				},
				cli.StringFlag{
					Name:  "amount, m",
					Value: "",
					Usage: " minimum `AMOUNT`",
				},
			},
			Action: runVerify,
		},
		{
			Name:      "query",
			Usage:     "ask an agent, spending a payment",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "agent, a",
					Value: "",
					Usage: "*agent `KIND`",
				},
				cli.StringFlag{
					Name:  "payment-id, i",
					Value: "",
					Usage: " payment `ID`, omit to see the payment terms",
				},
				cli.StringFlag{
					Name:  "query, q",
					Value: "",
					Usage: " query `TEXT`, e.g. a city",
				},
			},
			Action: runQuery,
		},
	}

	// set up the client before any command runs
	app.Before = func(c *cli.Context) error {
		client := &http.Client{
			Timeout: time.Duration(c.GlobalInt("timeout")) * time.Second,
		}
		if c.GlobalBool("insecure") {
			client.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}

		c.App.Metadata["config"] = &metadata{
			url:     strings.TrimRight(c.GlobalString("url"), "/"),
			client:  client,
			verbose: c.GlobalBool("verbose"),
			e:       c.App.ErrWriter,
			w:       c.App.Writer,
		}
		return nil
	}

	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}
