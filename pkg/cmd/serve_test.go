// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carvel.dev/vtl/pkg/cmd"
	"carvel.dev/vtl/pkg/website"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postRender(t *testing.T, body string) (int, website.RenderResponse) {
	mux := cmd.NewServeOptions().Server().Mux()

	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp website.RenderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return rec.Code, resp
}

func TestServeRender(t *testing.T) {
	code, resp := postRender(t, `{
		"template": "#parse('lib.vtl')#greet($name) #foreach($i in $nums)$i#end",
		"files": {"lib.vtl": "#macro(greet $who)Hello $who!#end"},
		"data": {"name": "vtl", "nums": [1, 2, 3]}
	}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, "Hello vtl! 123", resp.Output)
}

func TestServeRenderErrors(t *testing.T) {
	_, resp := postRender(t, `{"template": "$missing", "config": "strict_references = true"}`)
	assert.Contains(t, resp.Errors, "Variable '$missing' has not been set at request.vtl:1:1")

	_, resp = postRender(t, `{"template": "x", "data": [1]}`)
	assert.Equal(t, "Expected request data to be an object, but was []interface {}", resp.Errors)

	_, resp = postRender(t, `{"template": "x", "config": "unknown_key = 1"}`)
	assert.NotEmpty(t, resp.Errors)
}

func TestServeForeachLimit(t *testing.T) {
	_, resp := postRender(t, `{"template": "#foreach($i in [1..20000])x#end"}`)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, strings.Repeat("x", 10000), resp.Output)
}

func TestServeRejectsGet(t *testing.T) {
	mux := cmd.NewServeOptions().Server().Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
