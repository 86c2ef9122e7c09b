// Package cache keeps parsed feed summaries so the status server does not
// re-read and re-parse every feed file on each dashboard poll. Entries are
// keyed by path and invalidated when the file's size or mtime changes.
package cache

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/macadmins/sofa-status/internal/feed"
)

// node represents a node in the doubly-linked LRU list.
type node struct {
	key     string
	summary *feed.Summary
	size    int64
	modTime time.Time
	prev    *node
	next    *node
}

// FeedCache is an LRU cache of feed summaries with stat-based invalidation.
type FeedCache struct {
	maxSize int
	count   int

	head *node
	tail *node

	entries map[string]*node
	mutex   sync.Mutex

	hits   int64
	misses int64
}

// NewFeedCache creates a cache holding at most maxSize summaries.
func NewFeedCache(maxSize int) *FeedCache {
	if maxSize <= 0 {
		maxSize = 64
	}

	// Dummy head and tail nodes for easier list manipulation
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &FeedCache{
		maxSize: maxSize,
		head:    head,
		tail:    tail,
		entries: make(map[string]*node),
	}
}

// Get returns the cached summary for path when the file on disk still has
// the size and mtime the summary was parsed from. A changed or missing file
// evicts the entry and reports a miss.
func (c *FeedCache) Get(path string) (*feed.Summary, bool) {
	info, err := os.Stat(path)
	if err != nil {
		c.evict(path)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	n, ok := c.entries[path]
	if !ok || n.size != info.Size() || !n.modTime.Equal(info.ModTime()) {
		if ok {
			c.remove(n)
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.moveToFront(n)
	atomic.AddInt64(&c.hits, 1)
	return n.summary, true
}

// Put stores a summary for path, recording the file's current size and
// mtime for later invalidation.
func (c *FeedCache) Put(path string, summary *feed.Summary) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, ok := c.entries[path]; ok {
		n.summary = summary
		n.size = summary.SizeBytes
		n.modTime = summary.ModTime
		c.moveToFront(n)
		return
	}

	n := &node{key: path, summary: summary, size: summary.SizeBytes, modTime: summary.ModTime}
	c.entries[path] = n
	c.insertFront(n)
	c.count++

	if c.count > c.maxSize {
		oldest := c.tail.prev
		c.remove(oldest)
	}
}

// ReadSummary returns the summary for path, parsing the feed only on a miss.
func (c *FeedCache) ReadSummary(path string) (*feed.Summary, error) {
	if summary, ok := c.Get(path); ok {
		return summary, nil
	}

	summary, err := feed.ReadSummary(path)
	if err != nil {
		return nil, err
	}
	c.Put(path, summary)
	return summary, nil
}

// Stats returns hit/miss counters and current size.
func (c *FeedCache) Stats() map[string]any {
	c.mutex.Lock()
	count := c.count
	c.mutex.Unlock()

	return map[string]any{
		"entries":  count,
		"max_size": c.maxSize,
		"hits":     atomic.LoadInt64(&c.hits),
		"misses":   atomic.LoadInt64(&c.misses),
	}
}

// Clear drops every entry.
func (c *FeedCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*node)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.count = 0
}

func (c *FeedCache) evict(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if n, ok := c.entries[path]; ok {
		c.remove(n)
	}
}

func (c *FeedCache) insertFront(n *node) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

func (c *FeedCache) remove(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	delete(c.entries, n.key)
	c.count--
}

func (c *FeedCache) moveToFront(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	c.insertFront(n)
}
