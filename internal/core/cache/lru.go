// Package cache holds a small LRU used to memoize per-item metadata
// looked up from an index store.
package cache

import (
	"container/list"
	"sync"

	"mediacarousel/internal/index/store"
)

type entry struct {
	key string
	it  store.Item
}

type Metadata struct {
	mu  sync.Mutex
	cap int
	ll  *list.List
	m   map[string]*list.Element
}

func NewMetadata(capacity int) *Metadata {
	if capacity <= 0 {
		capacity = 1
	}
	return &Metadata{
		cap: capacity,
		ll:  list.New(),
		m:   map[string]*list.Element{},
	}
}

func (c *Metadata) Get(key string) (store.Item, bool) {
	if c == nil {
		return store.Item{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.m[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*entry).it, true
	}
	return store.Item{}, false
}

func (c *Metadata) Put(key string, it store.Item) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.m[key]; ok {
		el.Value.(*entry).it = it
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{key: key, it: it})
	c.m[key] = el

	for c.ll.Len() > c.cap {
		last := c.ll.Back()
		if last == nil {
			break
		}
		ent := last.Value.(*entry)
		delete(c.m, ent.key)
		c.ll.Remove(last)
	}
}

// Delete drops one key, typically after the underlying file changed.
func (c *Metadata) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.m[key]; ok {
		delete(c.m, key)
		c.ll.Remove(el)
	}
}

func (c *Metadata) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
