// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

// Package intern deduplicates strings produced while compiling templates
// (property names, literal text) so that many templates share one copy.
package intern

import (
	"sync"

	"github.com/segmentio/fasthash/fnv1a"
)

const shardCount = 32

type Pool struct {
	shards [shardCount]shard
}

type shard struct {
	lock    sync.Mutex
	strings map[string]string
}

func NewPool() *Pool {
	p := &Pool{}
	for i := range p.shards {
		p.shards[i].strings = map[string]string{}
	}
	return p
}

// Intern returns canonical copy of str. Nil pool interns nothing.
func (p *Pool) Intern(str string) string {
	if p == nil || len(str) == 0 {
		return str
	}
	sh := &p.shards[fnv1a.HashString64(str)%shardCount]

	sh.lock.Lock()
	defer sh.lock.Unlock()

	if existing, found := sh.strings[str]; found {
		return existing
	}
	sh.strings[str] = str
	return str
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	var total int
	for i := range p.shards {
		p.shards[i].lock.Lock()
		total += len(p.shards[i].strings)
		p.shards[i].lock.Unlock()
	}
	return total
}

// Reset drops all interned strings.
func (p *Pool) Reset() {
	if p == nil {
		return
	}
	for i := range p.shards {
		p.shards[i].lock.Lock()
		p.shards[i].strings = map[string]string{}
		p.shards[i].lock.Unlock()
	}
}
