package common

import (
	"container/list"
	"sync"
)

// BoundedLRU is a thread-safe bounded LRU map. onEvict, when set, runs under the lock.
type BoundedLRU[K comparable, V any] struct {
	mu      sync.Mutex
	items   map[K]*list.Element
	order   *list.List
	maxSize int
	onEvict func(K, V)
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func NewBoundedLRU[K comparable, V any](maxSize int, onEvict func(K, V)) *BoundedLRU[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &BoundedLRU[K, V]{
		items:   make(map[K]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
		onEvict: onEvict,
	}
}

// GetOrCreate returns the value for key, promoting it, or stores create() when absent.
// create runs under the lock and must not block.
func (c *BoundedLRU[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*lruEntry[K, V]).value
	}

	for len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	entry := &lruEntry[K, V]{key: key, value: create()}
	c.items[key] = c.order.PushFront(entry)
	return entry.value
}

func (c *BoundedLRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry[K, V]).value, true
}

func (c *BoundedLRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

func (c *BoundedLRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictOldest must be called with mu held
func (c *BoundedLRU[K, V]) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*lruEntry[K, V])
	c.order.Remove(back)
	delete(c.items, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}
