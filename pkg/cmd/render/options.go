// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"carvel.dev/vtl/pkg/cmd/ui"
	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/datavalues"
	"carvel.dev/vtl/pkg/template"
	"github.com/tliron/commonlog"
	// registers default commonlog backend
	_ "github.com/tliron/commonlog/simple"
)

type Options struct {
	Debug     bool
	Strict    bool
	Recursive bool

	Files             []string
	RuntimeConfigPath string
	MacroLibraries    []string
	OutputFiles       string

	DataValuesFlags datavalues.Flags
}

type OutputFile struct {
	Name string
	Data []byte
}

type Output struct {
	Files []OutputFile
	Err   error
}

func NewOptions() *Options {
	return &Options{Recursive: true}
}

func (o *Options) BindFlags(cmdFlags CmdFlags) {
	cmdFlags.BoolVar(&o.Debug, "debug", false, "Enable debug output")
	cmdFlags.BoolVar(&o.Strict, "strict", false, "Fail on undefined and null references (overrides strict_references)")
	cmdFlags.BoolVarP(&o.Recursive, "recursive", "R", true, "Render templates in subdirectories (true by default)")

	cmdFlags.StringArrayVarP(&o.Files, "file", "f", nil, "File or directory with templates; '-' reads template from stdin (can be specified multiple times)")
	cmdFlags.StringVarP(&o.RuntimeConfigPath, "runtime-config", "c", "", "Runtime configuration file (TOML)")
	cmdFlags.StringArrayVar(&o.MacroLibraries, "macro-library", nil, "Template loaded as velocimacro library before rendering (can be specified multiple times)")
	cmdFlags.StringVar(&o.OutputFiles, "output-files", "", "Write rendered templates into given directory instead of stdout")

	o.DataValuesFlags.Set(cmdFlags)
}

func (o *Options) Run() error {
	ui := ui.NewTTY(o.Debug)
	t1 := time.Now()

	defer func() {
		ui.Debugf("total: %s\n", time.Now().Sub(t1))
	}()

	configureLogging(o.Debug)

	in, err := o.Input(os.Stdin)
	if err != nil {
		return err
	}

	out := o.RunWithInput(in, ui)
	if out.Err != nil {
		return out.Err
	}

	return o.write(out, ui)
}

// RunWithInput renders every template of the input in order.
// It stops at first failure.
func (o *Options) RunWithInput(in Input, ui ui.UI) Output {
	cfg, err := o.RuntimeConfig()
	if err != nil {
		return Output{Err: err}
	}

	engine, err := template.NewEngine(template.Options{
		Config:  &cfg,
		Loaders: in.Loaders,
		Logger:  commonlog.GetLogger("vtl"),
	})
	if err != nil {
		return Output{Err: err}
	}
	defer engine.Close()

	vals, err := o.DataValuesFlags.Values()
	if err != nil {
		return Output{Err: err}
	}

	vars := datavalues.AsVars(vals)

	if len(in.Templates) == 0 {
		ui.Warnf("Warning: no templates to render\n")
	}
	fmt.Fprintf(ui.DebugWriter(), "templates: %s\n", strings.Join(in.Templates, ", "))

	var out Output

	for _, name := range in.Templates {
		t1 := time.Now()

		tpl, err := engine.GetTemplate(name)
		if err != nil {
			return Output{Err: err}
		}

		var buf bytes.Buffer

		err = tpl.Merge(template.NewContextFromMap(vars), &buf)
		if err != nil {
			return Output{Err: err}
		}

		ui.Debugf("rendered %s: %s\n", name, time.Now().Sub(t1))

		out.Files = append(out.Files, OutputFile{Name: name, Data: buf.Bytes()})
	}

	return out
}

// RuntimeConfig reads runtime configuration and applies flag overrides.
func (o *Options) RuntimeConfig() (config.Runtime, error) {
	cfg := config.Default()

	if len(o.RuntimeConfigPath) > 0 {
		var err error
		cfg, err = config.Load(o.RuntimeConfigPath)
		if err != nil {
			return config.Runtime{}, err
		}
	}

	if o.Strict {
		cfg.StrictReferences = true
	}
	cfg.Velocimacro.Library = append(cfg.Velocimacro.Library, o.MacroLibraries...)

	return cfg, nil
}

func (o *Options) write(out Output, ui ui.UI) error {
	if len(o.OutputFiles) == 0 {
		for _, file := range out.Files {
			ui.Printf("%s", file.Data)
		}
		return nil
	}

	for _, file := range out.Files {
		path := filepath.Join(o.OutputFiles, filepath.FromSlash(file.Name))
		ui.Printf("creating: %s\n", path)

		err := os.MkdirAll(filepath.Dir(path), 0700)
		if err != nil {
			return fmt.Errorf("Creating output directory: %s", err)
		}
		err = os.WriteFile(path, file.Data, 0600)
		if err != nil {
			return fmt.Errorf("Writing output file '%s': %s", path, err)
		}
	}
	return nil
}

func configureLogging(debug bool) {
	verbosity := 0
	if debug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}
