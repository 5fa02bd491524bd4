// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package website

import (
	"encoding/json"
)

// RenderRequest is body of POST /render.
type RenderRequest struct {
	Template string `json:"template"`
	// Files are available to #parse and #include by name
	Files map[string]string `json:"files,omitempty"`
	// Data is JSON object whose keys become template variables
	Data json.RawMessage `json:"data,omitempty"`
	// Config is runtime configuration in TOML
	Config string `json:"config,omitempty"`
}

type RenderResponse struct {
	Output string `json:"output,omitempty"`
	Errors string `json:"errors,omitempty"`
}

const usage = `vtl render server

POST /render with JSON body:
  {"template": "Hello $name", "data": {"name": "vtl"}, "files": {"lib.vtl": "..."}, "config": "strict_references = true"}

Response:
  {"output": "Hello vtl"} or {"errors": "..."}
`
