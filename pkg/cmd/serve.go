// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/datavalues"
	"carvel.dev/vtl/pkg/orderedmap"
	"carvel.dev/vtl/pkg/resource"
	"carvel.dev/vtl/pkg/template"
	"carvel.dev/vtl/pkg/website"
	"github.com/spf13/cobra"
)

const requestTemplateName = "request.vtl"

type ServeOptions struct {
	ListenAddr      string
	RedirectToHTTPS bool
	MaxBodyBytes    int64
	// ForeachMaxLoops applies to requests that do not limit loops themselves
	ForeachMaxLoops int
}

func NewServeOptions() *ServeOptions {
	return &ServeOptions{
		MaxBodyBytes:    1 << 20,
		ForeachMaxLoops: 10000,
	}
}

func NewServeCmd(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts HTTP server rendering templates posted to /render",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVar(&o.ListenAddr, "listen-addr", "localhost:8080", "Listen address")
	cmd.Flags().BoolVar(&o.RedirectToHTTPS, "redirect-to-https", false, "Redirect to HTTPs address")
	cmd.Flags().Int64Var(&o.MaxBodyBytes, "max-body-bytes", o.MaxBodyBytes, "Maximum size of render request body")
	cmd.Flags().IntVar(&o.ForeachMaxLoops, "foreach-max-loops", o.ForeachMaxLoops, "Default limit of #foreach iterations per loop")
	return cmd
}

func (o *ServeOptions) Server() *website.Server {
	opts := website.ServerOpts{
		ListenAddr:      o.ListenAddr,
		RedirectToHTTPS: o.RedirectToHTTPS,
		MaxBodyBytes:    o.MaxBodyBytes,
		RenderFunc:      o.render,
		ErrorFunc:       o.renderErr,
	}
	return website.NewServer(opts)
}

func (o *ServeOptions) Run() error {
	return o.Server().Run()
}

func (o *ServeOptions) render(data []byte) ([]byte, error) {
	var req website.RenderRequest

	err := json.Unmarshal(data, &req)
	if err != nil {
		return nil, fmt.Errorf("Unmarshaling render request: %s", err)
	}

	cfg, err := config.Decode([]byte(req.Config))
	if err != nil {
		return nil, err
	}
	if cfg.ForeachMaxLoops <= 0 {
		cfg.ForeachMaxLoops = o.ForeachMaxLoops
	}

	loader := resource.NewStringLoader()
	for name, content := range req.Files {
		loader.Put(name, content)
	}

	engine, err := template.NewEngine(template.Options{Config: &cfg, Loaders: []resource.Loader{loader}})
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	ctx, err := o.requestContext(req.Data)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer

	err = engine.Evaluate(ctx, &out, requestTemplateName, req.Template)
	if err != nil {
		return nil, err
	}

	return json.Marshal(website.RenderResponse{Output: out.String()})
}

func (o *ServeOptions) requestContext(data json.RawMessage) (template.Context, error) {
	ctx := template.NewContext()
	if len(data) == 0 {
		return ctx, nil
	}

	vals, err := datavalues.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("Parsing request data: %s", err)
	}

	switch typedVals := vals.(type) {
	case nil:
	case *orderedmap.Map:
		typedVals.Iterate(func(k, v interface{}) {
			ctx.Put(k.(string), v)
		})
	default:
		return nil, fmt.Errorf("Expected request data to be an object, but was %T", vals)
	}

	return ctx, nil
}

func (*ServeOptions) renderErr(err error) ([]byte, error) {
	return json.Marshal(website.RenderResponse{Errors: err.Error()})
}
