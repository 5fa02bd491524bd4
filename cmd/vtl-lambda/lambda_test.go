// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"carvel.dev/vtl/pkg/cmd"
	"carvel.dev/vtl/pkg/website"
	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyRender(t *testing.T) {
	opts := cmd.NewServeOptions()
	opts.RedirectToHTTPS = true
	adapter := New(opts.Server().Mux())

	body := `{"template": "Hello $name", "data": {"name": "lambda"}}`

	resp, err := adapter.Proxy(events.ALBTargetGroupRequest{
		HTTPMethod:      "post",
		Path:            "/render",
		Headers:         map[string]string{"X-Forwarded-Proto": "https"},
		Body:            base64.StdEncoding.EncodeToString([]byte(body)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.StatusDescription)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])

	var renderResp website.RenderResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &renderResp))
	assert.Equal(t, "Hello lambda", renderResp.Output)
}

func TestProxyRedirectsPlainHTTP(t *testing.T) {
	opts := cmd.NewServeOptions()
	opts.RedirectToHTTPS = true
	adapter := New(opts.Server().Mux())

	resp, err := adapter.Proxy(events.ALBTargetGroupRequest{
		HTTPMethod: "GET",
		Path:       "/",
		Headers:    map[string]string{"Host": "vtl.example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
}

func TestRequestURL(t *testing.T) {
	accessor := RequestAccessor{stripBasePath: "/api"}

	url := accessor.requestURL(events.ALBTargetGroupRequest{
		Path:                            "/api/render",
		MultiValueQueryStringParameters: map[string][]string{"b": {"2"}, "a": {"1", "x y"}},
	})
	assert.Equal(t, defaultHost+"/render?a=1&a=x+y&b=2", url)
}
