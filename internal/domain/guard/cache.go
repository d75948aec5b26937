package guard

import (
	"container/list"
	"sync"
)

// decisionCache is a bounded LRU of guard decisions keyed by the hashed
// evaluation inputs. Both get and put mutate recency, so a plain Mutex.
type decisionCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[uint64]*list.Element
}

type cacheEntry struct {
	key      uint64
	decision Decision
}

func newDecisionCache(maxSize int) *decisionCache {
	return &decisionCache{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[uint64]*list.Element, maxSize),
	}
}

func (c *decisionCache) get(key uint64) (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return Decision{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).decision, true
}

func (c *decisionCache) put(key uint64, d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).decision = d
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, decision: d})
}

func (c *decisionCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
