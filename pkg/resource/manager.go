// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// CompileFunc turns fetched resource into cached artifact (e.g. compiled template).
type CompileFunc func(*Resource) (interface{}, error)

type Manager struct {
	loaders       []Loader
	checkInterval time.Duration
	now           func() time.Time

	lock    sync.Mutex
	entries map[string]*entry
}

type entry struct {
	lock     sync.Mutex
	res      *Resource
	compiled interface{}
}

// NewManager with checkInterval of 0 never reloads cached resources.
func NewManager(checkInterval time.Duration, loaders ...Loader) *Manager {
	return &Manager{
		loaders:       loaders,
		checkInterval: checkInterval,
		now:           time.Now,
		entries:       map[string]*entry{},
	}
}

func (m *Manager) AddLoader(loader Loader) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.loaders = append(m.loaders, loader)
}

// Get returns compiled artifact for name, fetching and compiling
// on first use or when resource was modified.
func (m *Manager) Get(name string, compile CompileFunc) (interface{}, *Resource, error) {
	normalized, err := Normalize(name)
	if err != nil {
		return nil, nil, err
	}

	e := m.entry(normalized)

	e.lock.Lock()
	defer e.lock.Unlock()

	if e.res != nil && !m.needsReload(e.res) {
		return e.compiled, e.res, nil
	}

	res, err := m.fetch(normalized)
	if err != nil {
		return nil, nil, err
	}

	compiled, err := compile(res)
	if err != nil {
		return nil, nil, err
	}

	e.res = res
	e.compiled = compiled
	return compiled, res, nil
}

// Load fetches resource bypassing compiled cache.
func (m *Manager) Load(name string) (*Resource, error) {
	normalized, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	return m.fetch(normalized)
}

func (m *Manager) Exists(name string) bool {
	normalized, err := Normalize(name)
	if err != nil {
		return false
	}
	for _, loader := range m.loaderList() {
		rc, err := loader.Fetch(normalized)
		if err == nil {
			rc.Close()
			return true
		}
	}
	return false
}

// Clear drops all cached resources.
func (m *Manager) Clear() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.entries = map[string]*entry{}
}

func (m *Manager) entry(name string) *entry {
	m.lock.Lock()
	defer m.lock.Unlock()

	e, found := m.entries[name]
	if !found {
		e = &entry{}
		m.entries[name] = e
	}
	return e
}

func (m *Manager) needsReload(res *Resource) bool {
	if m.checkInterval <= 0 {
		return false
	}
	now := m.now()
	if now.Sub(res.lastChecked) < m.checkInterval {
		return false
	}
	res.lastChecked = now
	return res.loader.IsModified(res)
}

func (m *Manager) fetch(name string) (*Resource, error) {
	for _, loader := range m.loaderList() {
		rc, err := loader.Fetch(name)
		if err != nil {
			var notFoundErr NotFoundError
			if errors.As(err, &notFoundErr) {
				continue
			}
			return nil, fmt.Errorf("Fetching resource '%s': %s", name, err)
		}

		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("Reading resource '%s': %s", name, err)
		}
		return newResource(name, loader, data, m.now()), nil
	}
	return nil, NotFoundError{name}
}

func (m *Manager) loaderList() []Loader {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]Loader{}, m.loaders...)
}
