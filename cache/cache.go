// Package cache provides the result cache dbkit consults for read
// statements.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Cache stores query results by key.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Clear()
}

// Key derives a cache key from a statement and its arguments.
func Key(sql string, args []any) string {
	h := sha256.New()
	h.Write([]byte(sql))
	h.Write([]byte{0})
	if b, err := json.Marshal(args); err == nil {
		h.Write(b)
	} else {
		fmt.Fprintf(h, "%#v", args)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Stats reports cache activity.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

type entry struct {
	key     string
	value   any
	expires time.Time
}

// LRU is a size-bounded cache with per-entry expiry.
type LRU struct {
	mu    sync.Mutex
	size  int
	ll    *list.List
	items map[string]*list.Element
	now   func() time.Time
	stats Stats
}

// NewLRU creates a cache holding at most size entries.
func NewLRU(size int) *LRU {
	if size <= 0 {
		size = 1
	}
	return &LRU{
		size:  size,
		ll:    list.New(),
		items: make(map[string]*list.Element, size),
		now:   time.Now,
	}
}

// Get returns the live value for key.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.remove(el)
		c.stats.Misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

// Set stores value under key. A zero ttl never expires.
func (c *LRU) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value, e.expires = value, expires
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, value: value, expires: expires})
	for c.ll.Len() > c.size {
		c.remove(c.ll.Back())
		c.stats.Evictions++
	}
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.size)
}

// Stats returns a snapshot of cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.ll.Len()
	return s
}

func (c *LRU) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
