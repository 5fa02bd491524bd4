// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

const defaultStatusCode = -1

// ProxyResponseWriter collects handler output and converts it
// into ALB target group response.
type ProxyResponseWriter struct {
	headers http.Header
	body    bytes.Buffer
	status  int
}

var _ http.ResponseWriter = &ProxyResponseWriter{}

func NewProxyResponseWriter() *ProxyResponseWriter {
	return &ProxyResponseWriter{
		headers: make(http.Header),
		status:  defaultStatusCode,
	}
}

func (r *ProxyResponseWriter) Header() http.Header { return r.headers }

func (r *ProxyResponseWriter) Write(body []byte) (int, error) {
	if r.status == defaultStatusCode {
		r.status = http.StatusOK
	}

	// if the content type header is not set when we write the body we try to
	// detect one and set it by default
	if r.headers.Get("Content-Type") == "" {
		r.headers.Add("Content-Type", http.DetectContentType(body))
	}

	return r.body.Write(body)
}

func (r *ProxyResponseWriter) WriteHeader(status int) {
	r.status = status
}

func (r *ProxyResponseWriter) GetProxyResponse() (events.ALBTargetGroupResponse, error) {
	if r.status == defaultStatusCode {
		return events.ALBTargetGroupResponse{}, fmt.Errorf("Status code not set on response")
	}

	var output string
	isBase64 := false

	if utf8.Valid(r.body.Bytes()) {
		output = r.body.String()
	} else {
		output = base64.StdEncoding.EncodeToString(r.body.Bytes())
		isBase64 = true
	}

	headers := map[string]string{}
	for key, vals := range r.headers {
		headers[key] = strings.Join(vals, ",")
	}

	return events.ALBTargetGroupResponse{
		StatusCode:        r.status,
		StatusDescription: fmt.Sprintf("%d %s", r.status, http.StatusText(r.status)),
		Headers:           headers,
		MultiValueHeaders: map[string][]string(r.headers),
		Body:              output,
		IsBase64Encoded:   isBase64,
	}, nil
}
