// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"carvel.dev/vtl/pkg/resource"
)

const (
	stdinTemplateName = "stdin.vtl"
	// files starting with this prefix are available to #parse and
	// #include but are not rendered on their own
	partialPrefix = "_"
)

// Input lists templates to render and loaders able to find them
// (and anything they #parse or #include).
type Input struct {
	Templates []string
	Loaders   []resource.Loader
}

func (o *Options) Input(stdin io.Reader) (Input, error) {
	if len(o.Files) == 0 {
		return Input{}, fmt.Errorf("Expected at least one template file or directory (use -f)")
	}

	stdinLoader := resource.NewStringLoader()
	in := Input{Loaders: []resource.Loader{stdinLoader}}

	for _, path := range o.Files {
		if path == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return Input{}, fmt.Errorf("Reading stdin: %s", err)
			}
			stdinLoader.Put(stdinTemplateName, string(data))
			in.Templates = append(in.Templates, stdinTemplateName)
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return Input{}, fmt.Errorf("Checking file '%s': %s", path, err)
		}

		if !info.IsDir() {
			in.Loaders = append(in.Loaders, resource.NewFSLoader(os.DirFS(filepath.Dir(path))))
			in.Templates = append(in.Templates, filepath.Base(path))
			continue
		}

		names, err := o.dirTemplates(path)
		if err != nil {
			return Input{}, err
		}
		in.Loaders = append(in.Loaders, resource.NewFSLoader(os.DirFS(path)))
		in.Templates = append(in.Templates, names...)
	}

	return in, nil
}

func (o *Options) dirTemplates(root string) ([]string, error) {
	var names []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != root && !o.Recursive {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), partialPrefix) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Listing templates in directory '%s': %s", root, err)
	}

	return names, nil
}
