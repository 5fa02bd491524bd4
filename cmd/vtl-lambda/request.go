// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// HostEnvVariable overrides scheme and host of converted requests
// (e.g. https://vtl.example.com).
const HostEnvVariable = "VTL_LAMBDA_HOST"

const defaultHost = "https://vtl.lambda"

type RequestAccessor struct {
	stripBasePath string
}

// ProxyEventToHTTPRequest converts ALB event into request
// that can be served by regular http.Handler.
func (r *RequestAccessor) ProxyEventToHTTPRequest(event events.ALBTargetGroupRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("Decoding base64 body: %s", err)
		}
		body = decoded
	}

	req, err := http.NewRequest(strings.ToUpper(event.HTTPMethod), r.requestURL(event), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Building request %s %s: %s", event.HTTPMethod, event.Path, err)
	}

	for name, val := range event.Headers {
		req.Header.Add(name, val)
	}
	for name, vals := range event.MultiValueHeaders {
		for _, val := range vals {
			req.Header.Add(name, val)
		}
	}

	return req, nil
}

func (r *RequestAccessor) requestURL(event events.ALBTargetGroupRequest) string {
	path := event.Path
	if len(r.stripBasePath) > 1 {
		path = strings.TrimPrefix(path, r.stripBasePath)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	host := defaultHost
	if customHost, ok := os.LookupEnv(HostEnvVariable); ok {
		host = customHost
	}

	query := url.Values{}
	for name, vals := range event.MultiValueQueryStringParameters {
		for _, val := range vals {
			query.Add(name, val)
		}
	}
	if len(query) == 0 {
		for name, val := range event.QueryStringParameters {
			query.Add(name, val)
		}
	}

	result := host + path
	if len(query) > 0 {
		result += "?" + encodeSorted(query)
	}
	return result
}

func encodeSorted(query url.Values) string {
	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	var pieces []string
	for _, name := range names {
		for _, val := range query[name] {
			pieces = append(pieces, url.QueryEscape(name)+"="+url.QueryEscape(val))
		}
	}
	return strings.Join(pieces, "&")
}
