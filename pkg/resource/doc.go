// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package resource provides loading of named template sources.

A Loader fetches raw bytes for a logical name (e.g. "layout/page.vtl") from
some backing store: an in-memory map (StringLoader), a filesystem (FSLoader)
or an HTTP server (HTTPLoader). The Manager sits in front of a list of loaders,
normalizes names (rejecting parent directory traversal), and caches both
fetched Resources and whatever was compiled from them, reloading a Resource
when its Loader reports modification.
*/
package resource
