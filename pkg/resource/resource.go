// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Loader is implemented by every backing store of template sources.
type Loader interface {
	// Fetch returns NotFoundError when name is not known to the loader.
	Fetch(name string) (io.ReadCloser, error)
	IsModified(res *Resource) bool
	LastModified(res *Resource) time.Time
}

type Resource struct {
	Name         string
	Data         []byte
	Digest       []byte
	LastModified time.Time

	loader      Loader
	lastChecked time.Time
}

func newResource(name string, loader Loader, data []byte, now time.Time) *Resource {
	res := &Resource{
		Name:        name,
		Data:        data,
		Digest:      Digest(data),
		loader:      loader,
		lastChecked: now,
	}
	res.LastModified = loader.LastModified(res)
	return res
}

// Loader returns loader that produced this resource.
func (r *Resource) Loader() Loader { return r.loader }

func (r *Resource) String() string { return string(r.Data) }

// Digest computes content hash used to detect modifications.
func Digest(data []byte) []byte {
	h := blake3.New()
	h.Write(data)
	return h.Sum(nil)
}

func (r *Resource) SameContent(data []byte) bool {
	return bytes.Equal(r.Digest, Digest(data))
}

type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("Unable to find resource '%s'", e.Name)
}

// Normalize cleans up logical resource name and rejects names
// that try to escape loader root via "..".
func Normalize(name string) (string, error) {
	if len(strings.TrimSpace(name)) == 0 {
		return "", fmt.Errorf("Expected resource name to be non-empty")
	}
	slashed := strings.ReplaceAll(name, "\\", "/")
	for _, piece := range strings.Split(slashed, "/") {
		if piece == ".." {
			return "", fmt.Errorf("Expected resource name '%s' to not traverse parent directories", name)
		}
	}
	return strings.TrimPrefix(path.Clean("/"+slashed), "/"), nil
}
