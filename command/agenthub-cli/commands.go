// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/agenthub/agent"
	"github.com/bitmark-inc/agenthub/currency/ethereum"
	"github.com/bitmark-inc/agenthub/rpc/admission"
	"github.com/bitmark-inc/agenthub/util"
)

func runHealth(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	var reply map[string]interface{}
	if err := util.FetchJSON(m.client, m.url+"/health", &reply); nil != err {
		return err
	}
	return printJson(m.w, reply)
}

func runAgents(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	var reply []map[string]interface{}
	if err := util.FetchJSON(m.client, m.url+"/agents", &reply); nil != err {
		return err
	}
	if m.verbose {
		return printJson(m.w, reply)
	}
	for _, a := range reply {
		fmt.Fprintf(m.w, "%-12v %10v %-5v %v\n", a["kind"], a["price"], a["currency"], a["walletAddress"])
	}
	return nil
}

func runInfo(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	kind, err := checkAgent(c.String("agent"))
	if nil != err {
		return err
	}

	var reply map[string]interface{}
	if err := util.FetchJSON(m.client, m.url+"/agents/"+kind+"/info", &reply); nil != err {
		return err
	}
	return printJson(m.w, reply)
}

func runCreatePayment(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	payer, err := ethereum.ValidateAddress(c.String("payer"))
	if nil != err {
		return fmt.Errorf("payer: %w", err)
	}

	request := map[string]string{
		"payer":     payer,
		"amount":    c.String("amount"),
		"serviceId": c.String("service"),
	}

	switch {
	case "" != c.String("agent"):
		kind, err := checkAgent(c.String("agent"))
		if nil != err {
			return err
		}
		request["agent"] = kind
	case "" != c.String("to"):
		to, err := ethereum.ValidateAddress(c.String("to"))
		if nil != err {
			return fmt.Errorf("recipient: %w", err)
		}
		if "" == request["amount"] {
			return fmt.Errorf("amount is required with a recipient address")
		}
		request["agentAddress"] = to
	default:
		return fmt.Errorf("either agent or recipient is required")
	}

	return post(m, "/payments/create", nil, request)
}

func runVerify(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	id := c.String("payment-id")
	if "" == id {
		return fmt.Errorf("payment id is required")
	}

	request := map[string]string{
		"paymentId":    id,
		"agentAddress": c.String("to"),
		"amount":       c.String("amount"),
	}
	if "" != c.String("agent") {
		kind, err := checkAgent(c.String("agent"))
		if nil != err {
			return err
		}
		request["agent"] = kind
	}

	return post(m, "/payments/verify", nil, request)
}

func runQuery(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	kind, err := checkAgent(c.String("agent"))
	if nil != err {
		return err
	}

	headers := map[string]string{}
	if id := c.String("payment-id"); "" != id {
		headers[admission.HeaderName] = id
	}
	request := map[string]string{
		"query": c.String("query"),
	}

	return post(m, "/agents/"+kind+"/query", headers, request)
}

// show the reply body whatever the status; only transport errors fail
func post(m *metadata, path string, headers map[string]string, request interface{}) error {
	if m.verbose {
		fmt.Fprintf(m.e, "POST %s%s\n", m.url, path)
		printJson(m.e, request)
	}

	var reply map[string]interface{}
	status, err := util.PostJSON(m.client, m.url+path, headers, request, &reply)
	if nil != err {
		return err
	}
	if http.StatusOK != status {
		fmt.Fprintf(m.e, "status: %d %s\n", status, http.StatusText(status))
	}
	return printJson(m.w, reply)
}

func checkAgent(name string) (string, error) {
	if "" == name {
		return "", fmt.Errorf("agent is required")
	}
	kind, err := agent.KindFromString(name)
	if nil != err {
		return "", fmt.Errorf("agent: %q: %w", name, err)
	}
	return kind.String(), nil
}
