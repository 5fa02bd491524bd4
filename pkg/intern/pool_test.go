// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package intern_test

import (
	"strings"
	"sync"
	"testing"
	"unsafe"

	"carvel.dev/vtl/pkg/intern"
	"github.com/stretchr/testify/assert"
)

func TestPoolReturnsCanonicalCopy(t *testing.T) {
	pool := intern.NewPool()

	first := pool.Intern(strings.Repeat("ab", 3))
	second := pool.Intern(strings.Repeat("ab", 3))

	assert.Equal(t, "ababab", second)
	assert.True(t, unsafe.StringData(first) == unsafe.StringData(second))
	assert.Equal(t, 1, pool.Len())

	pool.Reset()
	assert.Equal(t, 0, pool.Len())
}

func TestNilPoolIsPassthrough(t *testing.T) {
	var pool *intern.Pool
	assert.Equal(t, "x", pool.Intern("x"))
	assert.Equal(t, 0, pool.Len())
}

func TestPoolConcurrentIntern(t *testing.T) {
	pool := intern.NewPool()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range []string{"foreach", "velocityCount", "bodyContent"} {
				pool.Intern(name)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, pool.Len())
}
