// Package lru provides a bounded least-recently-used cache with disposal
// hooks for values that own external resources.
//
// A Cache is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
package lru

import "container/list"

// Disposer is implemented by values that hold resources which must be
// released when the value leaves the cache through eviction or Clear.
type Disposer interface {
	Dispose()
}

// Cache is a bounded key/value store ordered by access. The front of the
// access list is the most recently used entry.
type Cache[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
	onEvict  func(K, V)
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvictHook registers fn to run for every entry dropped by eviction,
// Resize or Clear. It runs before the value is disposed.
func WithEvictHook[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a cache holding at most capacity entries. A negative capacity
// is treated as zero.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	c := &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and marks it most recently used. A miss
// leaves the access order untouched.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is cached without touching the access order.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Put stores value under key, marks it most recently used and evicts the
// least recently used entry if the cache is over capacity. The replaced
// value, if any, is returned to the caller and is not disposed.
func (c *Cache[K, V]) Put(key K, value V) (V, bool) {
	var prev V
	replaced := false

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		prev, replaced = e.value, true
		e.value = value
		c.order.MoveToFront(el)
	} else {
		c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	}

	c.trim()
	return prev, replaced
}

// Remove deletes key and returns its value. The value is handed back to the
// caller undisposed.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return el.Value.(*entry[K, V]).value, true
}

// Resize changes the capacity. Shrinking evicts least recently used entries
// until the cache fits; growing never evicts.
func (c *Cache[K, V]) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	c.capacity = capacity
	c.trim()
}

// Clear evicts and disposes every entry.
func (c *Cache[K, V]) Clear() {
	for c.order.Len() > 0 {
		c.evict(c.order.Back())
	}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.order.Len()
}

// Capacity returns the maximum number of entries.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

func (c *Cache[K, V]) trim() {
	for c.order.Len() > c.capacity {
		c.evict(c.order.Back())
	}
}

func (c *Cache[K, V]) evict(el *list.Element) {
	e := el.Value.(*entry[K, V])
	c.order.Remove(el)
	delete(c.items, e.key)

	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
	if d, ok := any(e.value).(Disposer); ok {
		d.Dispose()
	}
}
