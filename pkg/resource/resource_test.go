// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package resource_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"testing"
	"testing/fstest"
	"time"

	"carvel.dev/vtl/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"a.vtl":           "a.vtl",
		"/a.vtl":          "a.vtl",
		"dir/./b.vtl":     "dir/b.vtl",
		"dir\\sub\\c.vtl": "dir/sub/c.vtl",
		"dir//d.vtl":      "dir/d.vtl",
	}
	for in, expected := range cases {
		out, err := resource.Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, out, in)
	}

	for _, in := range []string{"../secret", "dir/../../x", "a\\..\\b", "", "  "} {
		_, err := resource.Normalize(in)
		require.Error(t, err, in)
	}
}

func TestManagerCachesCompiled(t *testing.T) {
	loader := resource.NewStringLoader()
	loader.Put("page.vtl", "hello")

	mgr := resource.NewManager(0, loader)

	var compiles int
	compile := func(res *resource.Resource) (interface{}, error) {
		compiles++
		return "compiled:" + res.String(), nil
	}

	result, res, err := mgr.Get("/page.vtl", compile)
	require.NoError(t, err)
	assert.Equal(t, "compiled:hello", result)
	assert.Equal(t, "page.vtl", res.Name)

	loader.Put("page.vtl", "changed")

	result, _, err = mgr.Get("page.vtl", compile)
	require.NoError(t, err)
	assert.Equal(t, "compiled:hello", result, "no reloads without check interval")
	assert.Equal(t, 1, compiles)
}

func TestManagerReloadsModified(t *testing.T) {
	loader := resource.NewStringLoader()
	loader.Put("page.vtl", "v1")

	mgr := resource.NewManager(time.Nanosecond, loader)
	compile := func(res *resource.Resource) (interface{}, error) { return res.String(), nil }

	result, _, err := mgr.Get("page.vtl", compile)
	require.NoError(t, err)
	assert.Equal(t, "v1", result)

	time.Sleep(time.Millisecond)
	loader.Put("page.vtl", "v2")
	time.Sleep(time.Millisecond)

	result, _, err = mgr.Get("page.vtl", compile)
	require.NoError(t, err)
	assert.Equal(t, "v2", result)
}

func TestManagerFallsThroughLoaders(t *testing.T) {
	first := resource.NewStringLoader()
	second := resource.NewFSLoader(fstest.MapFS{
		"lib/macros.vtl": &fstest.MapFile{Data: []byte("#macro(x)x#end"), ModTime: time.Unix(100, 0)},
	})

	mgr := resource.NewManager(0, first, second)

	res, err := mgr.Load("lib/macros.vtl")
	require.NoError(t, err)
	assert.Equal(t, "#macro(x)x#end", res.String())
	assert.Equal(t, time.Unix(100, 0), res.LastModified)
	assert.True(t, res.SameContent([]byte("#macro(x)x#end")))

	assert.True(t, mgr.Exists("lib/macros.vtl"))
	assert.False(t, mgr.Exists("lib"))
	assert.False(t, mgr.Exists("missing.vtl"))

	_, err = mgr.Load("missing.vtl")
	var notFoundErr resource.NotFoundError
	require.True(t, errors.As(err, &notFoundErr))
	assert.Equal(t, "missing.vtl", notFoundErr.Name)

	_, err = mgr.Load("../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to not traverse parent directories")
}

func TestHTTPLoader(t *testing.T) {
	loader := resource.NewHTTPLoader("http://example.com/templates/")
	loader.Client = &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		switch req.URL.Path {
		case "/templates/page.vtl":
			header := make(http.Header)
			header.Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("Hi $name")), Header: header}
		default:
			return &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found", Body: io.NopCloser(&bytes.Buffer{}), Header: make(http.Header)}
		}
	})}

	mgr := resource.NewManager(0, loader)

	res, err := mgr.Load("page.vtl")
	require.NoError(t, err)
	assert.Equal(t, "Hi $name", res.String())
	assert.Equal(t, 2015, res.LastModified.Year())

	_, err = mgr.Load("other.vtl")
	require.EqualError(t, err, "Unable to find resource 'other.vtl'")
}

type roundTripFunc func(req *http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}
