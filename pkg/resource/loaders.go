// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"
)

var _ []Loader = []Loader{&StringLoader{}, FSLoader{}, &HTTPLoader{}}

// StringLoader keeps templates in memory.
// Replacing a template with different content marks it modified.
type StringLoader struct {
	lock      sync.RWMutex
	templates map[string]stringTemplate
}

type stringTemplate struct {
	data     []byte
	digest   []byte
	modified time.Time
}

func NewStringLoader() *StringLoader {
	return &StringLoader{templates: map[string]stringTemplate{}}
}

func (l *StringLoader) Put(name, content string) {
	data := []byte(content)

	l.lock.Lock()
	defer l.lock.Unlock()

	if l.templates == nil {
		l.templates = map[string]stringTemplate{}
	}
	l.templates[name] = stringTemplate{data: data, digest: Digest(data), modified: time.Now()}
}

func (l *StringLoader) Remove(name string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.templates, name)
}

func (l *StringLoader) Fetch(name string) (io.ReadCloser, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	tpl, found := l.templates[name]
	if !found {
		return nil, NotFoundError{name}
	}
	return io.NopCloser(bytes.NewReader(tpl.data)), nil
}

func (l *StringLoader) IsModified(res *Resource) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()

	tpl, found := l.templates[res.Name]
	if !found {
		return true
	}
	return !bytes.Equal(tpl.digest, res.Digest)
}

func (l *StringLoader) LastModified(res *Resource) time.Time {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.templates[res.Name].modified
}

// FSLoader loads templates from a filesystem (typically os.DirFS(root)).
type FSLoader struct {
	FS fs.FS
}

func NewFSLoader(fsys fs.FS) FSLoader { return FSLoader{fsys} }

func (l FSLoader) Fetch(name string) (io.ReadCloser, error) {
	file, err := l.FS.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, NotFoundError{name}
		}
		return nil, fmt.Errorf("Opening file '%s': %s", name, err)
	}
	info, err := file.Stat()
	if err == nil && info.IsDir() {
		file.Close()
		return nil, NotFoundError{name}
	}
	return file, nil
}

func (l FSLoader) IsModified(res *Resource) bool {
	return !l.LastModified(res).Equal(res.LastModified)
}

func (l FSLoader) LastModified(res *Resource) time.Time {
	info, err := fs.Stat(l.FS, res.Name)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// HTTPLoader fetches templates relative to BaseURL.
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client

	lock     sync.Mutex
	modified map[string]time.Time
}

func NewHTTPLoader(baseURL string) *HTTPLoader {
	return &HTTPLoader{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: http.DefaultClient}
}

func (l *HTTPLoader) url(name string) string { return l.BaseURL + "/" + name }

func (l *HTTPLoader) Fetch(name string) (io.ReadCloser, error) {
	resp, err := l.client().Get(l.url(name))
	if err != nil {
		return nil, fmt.Errorf("Requesting URL '%s': %s", l.url(name), err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, NotFoundError{name}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("Requesting URL '%s': %s", l.url(name), resp.Status)
	}

	if lastMod, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		l.lock.Lock()
		if l.modified == nil {
			l.modified = map[string]time.Time{}
		}
		l.modified[name] = lastMod
		l.lock.Unlock()
	}

	return resp.Body, nil
}

// IsModified issues HEAD request and compares Last-Modified header.
// Servers without Last-Modified never report modification.
func (l *HTTPLoader) IsModified(res *Resource) bool {
	resp, err := l.client().Head(l.url(res.Name))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	lastMod, err := http.ParseTime(resp.Header.Get("Last-Modified"))
	if err != nil {
		return false
	}
	return lastMod.After(res.LastModified)
}

func (l *HTTPLoader) LastModified(res *Resource) time.Time {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.modified[res.Name]
}

func (l *HTTPLoader) client() *http.Client {
	if l.Client == nil {
		return http.DefaultClient
	}
	return l.Client
}
