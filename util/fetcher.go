// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// FetchJSON - fetch a JSON response from an HTTP request and decode
// it
func FetchJSON(client *http.Client, url string, reply interface{}) error {
	status, err := Exchange(client, http.MethodGet, url, nil, nil, reply)
	if nil != err {
		return err
	}
	if http.StatusOK != status {
		return fmt.Errorf("status: %d %q on: %q", status, http.StatusText(status), url)
	}
	return nil
}

// PostJSON - send a JSON request body and decode the JSON reply
//
// non-200 replies are still decoded so the caller can show the
// server's error body; the status is returned for the caller to check
func PostJSON(client *http.Client, url string, headers map[string]string, request interface{}, reply interface{}) (int, error) {
	return Exchange(client, http.MethodPost, url, headers, request, reply)
}

// Exchange - one JSON request/response round trip
func Exchange(client *http.Client, method string, url string, headers map[string]string, request interface{}, reply interface{}) (int, error) {
	var body io.Reader
	if nil != request {
		buffer, err := json.Marshal(request)
		if nil != err {
			return 0, err
		}
		body = bytes.NewReader(buffer)
	}

	req, err := http.NewRequest(method, url, body)
	if nil != err {
		return 0, err
	}
	if nil != request {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	response, err := client.Do(req)
	if nil != err {
		return 0, err
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if nil != err {
		return response.StatusCode, err
	}
	if 0 == len(data) {
		return response.StatusCode, nil
	}
	if err := json.Unmarshal(data, reply); nil != err {
		return response.StatusCode, fmt.Errorf("status: %d  invalid JSON reply: %s", response.StatusCode, err)
	}
	return response.StatusCode, nil
}
