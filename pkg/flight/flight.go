// Package flight coalesces concurrent identical lookups and caches their
// results for a bounded time. Used for web-search queries, where the same
// canned query can be fired by several turns in quick succession.
package flight

import (
	"sync"
	"time"
)

type Cache[K comparable, V any] struct {
	finished map[K]entry[V]
	fmu      sync.RWMutex

	pending map[K]*job[V]
	pmu     sync.Mutex

	work func(K) (V, error)
	ttl  time.Duration
}

type entry[V any] struct {
	val      V
	deadline time.Time // zero => never expires
}

type job[V any] struct {
	val  V
	err  error
	done chan struct{}
}

func NewCache[K comparable, V any](work func(K) (V, error)) *Cache[K, V] {
	return &Cache[K, V]{
		finished: make(map[K]entry[V]),
		pending:  make(map[K]*job[V]),
		work:     work,
		ttl:      time.Hour,
	}
}

// Expiry sets how long finished results stay valid. d <= 0 means forever.
func (c *Cache[K, V]) Expiry(d time.Duration) {
	c.fmu.Lock()
	c.ttl = d
	c.fmu.Unlock()
}

// Get returns the cached value for k, joins an in-flight computation for k if
// one exists, or runs the work function itself.
func (c *Cache[K, V]) Get(k K) (V, error) {
	if v, ok := c.lookup(k); ok {
		return v, nil
	}

	c.pmu.Lock()
	if p, ok := c.pending[k]; ok {
		c.pmu.Unlock()
		<-p.done
		return p.val, p.err
	}
	j := &job[V]{done: make(chan struct{})}
	c.pending[k] = j
	c.pmu.Unlock()

	j.val, j.err = c.work(k)
	if j.err == nil {
		c.store(k, j.val)
	}

	c.pmu.Lock()
	close(j.done)
	delete(c.pending, k)
	c.pmu.Unlock()

	return j.val, j.err
}

func (c *Cache[K, V]) lookup(k K) (V, bool) {
	c.fmu.RLock()
	e, ok := c.finished[k]
	c.fmu.RUnlock()
	if !ok {
		return e.val, false
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		c.fmu.Lock()
		if cur, ok := c.finished[k]; ok && cur.deadline.Equal(e.deadline) {
			delete(c.finished, k)
		}
		c.fmu.Unlock()
		var zero V
		return zero, false
	}
	return e.val, true
}

func (c *Cache[K, V]) store(k K, v V) {
	c.fmu.Lock()
	e := entry[V]{val: v}
	if c.ttl > 0 {
		e.deadline = time.Now().Add(c.ttl)
	}
	c.finished[k] = e
	c.fmu.Unlock()
}
