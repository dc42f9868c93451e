// Package dedup implements the event deduplication cache.
package dedup

import (
	"hash/fnv"
	"sync"
	"time"
)

// FingerprintCache is the interface for fingerprint membership caches used to
// suppress duplicate events within a recent time window.
type FingerprintCache interface {
	// Seen checks whether a fingerprint has been recorded before. If not, it
	// records it. Returns true when the fingerprint is a duplicate.
	Seen(fingerprint string) bool

	// Sweep removes entries whose window has elapsed. Returns the number
	// removed. Called on a schedule rather than a full-cache clear, so a
	// fingerprint's remaining lifetime is always close to the configured
	// window regardless of when Sweep last ran.
	Sweep() int

	Len() int
}

// bloomFilter is a probabilistic set membership test kept alongside the
// exact LRU. Every Seen call still consults the LRU, and so takes its lock;
// the filter does not short-circuit unique events.
type bloomFilter struct {
	mu      sync.RWMutex
	bits    []uint64
	size    uint64
	hashFns int
	count   int
}

func newBloomFilter(expectedItems int, falsePositiveRate float64) *bloomFilter {
	if expectedItems <= 0 {
		expectedItems = 100_000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	const ln2Squared = 0.693147 * 0.693147
	lnP := approximateLn(falsePositiveRate)

	m := int(-float64(expectedItems) * lnP / ln2Squared)
	if m < 64 {
		m = 64
	}
	k := int(float64(m) / float64(expectedItems) * 0.693147)
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}

	words := (m + 63) / 64
	return &bloomFilter{
		bits:    make([]uint64, words),
		size:    uint64(words * 64),
		hashFns: k,
	}
}

func (bf *bloomFilter) add(key string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	for _, h := range bf.hashes(key) {
		idx := h % bf.size
		bf.bits[idx/64] |= 1 << (idx % 64)
	}
	bf.count++
}

// addAndTest adds key and reports whether it was possibly already present.
func (bf *bloomFilter) addAndTest(key string) bool {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	allSet := true
	hashes := bf.hashes(key)
	for _, h := range hashes {
		idx := h % bf.size
		if bf.bits[idx/64]&(1<<(idx%64)) == 0 {
			allSet = false
		}
	}
	for _, h := range hashes {
		idx := h % bf.size
		bf.bits[idx/64] |= 1 << (idx % 64)
	}
	bf.count++
	return allSet
}

func (bf *bloomFilter) clear() {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	for i := range bf.bits {
		bf.bits[i] = 0
	}
	bf.count = 0
}

func (bf *bloomFilter) hashes(key string) []uint64 {
	h1 := fnv.New64a()
	h1.Write([]byte(key))
	hash1 := h1.Sum64()

	h2 := fnv.New64()
	h2.Write([]byte(key))
	h2.Write([]byte{0xff})
	hash2 := h2.Sum64()

	out := make([]uint64, bf.hashFns)
	for i := 0; i < bf.hashFns; i++ {
		out[i] = hash1 + uint64(i)*hash2
	}
	return out
}

// approximateLn returns a bucketed ln(x) for x in (0,1), enough precision
// for Bloom filter sizing.
func approximateLn(x float64) float64 {
	switch {
	case x >= 0.1:
		return -2.303
	case x >= 0.05:
		return -2.996
	case x >= 0.01:
		return -4.605
	case x >= 0.005:
		return -5.298
	case x >= 0.001:
		return -6.908
	default:
		return -9.210
	}
}

// entry is a node in the age-ordered doubly-linked list backing the LRU.
type entry struct {
	key       string
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// exactLRU is a thread-safe fingerprint cache with TTL-based expiry: Seen
// is O(1), Sweep walks every entry. Unlike a one-shot hourly clear, each fingerprint's
// remaining lifetime is always close to `window` rather than anywhere
// from 0 to an hour.
type exactLRU struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	items    map[string]*entry
	head     *entry
	tail     *entry
}

func newExactLRU(capacity int, window time.Duration) *exactLRU {
	if capacity <= 0 {
		capacity = 500_000
	}
	if window <= 0 {
		window = time.Hour
	}
	c := &exactLRU{
		capacity: capacity,
		window:   window,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *exactLRU) seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.items[key]; ok {
		if !now.After(e.expiresAt) {
			c.moveToFront(e)
			return true
		}
		c.remove(e)
	}

	e := &entry{key: key, expiresAt: now.Add(c.window)}
	c.addToFront(e)
	c.items[key] = e

	for len(c.items) > c.capacity {
		oldest := c.tail.prev
		if oldest == c.head {
			break
		}
		c.remove(oldest)
	}
	return false
}

func (c *exactLRU) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			c.remove(e)
			removed++
		}
		e = prev
	}
	return removed
}

func (c *exactLRU) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *exactLRU) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *exactLRU) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *exactLRU) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}

// bloomLRUCache combines the Bloom filter fast path with the exact LRU for
// accurate, age-indexed duplicate detection.
type bloomLRUCache struct {
	bloom *bloomFilter
	lru   *exactLRU
}

// NewFingerprintCache returns the default FingerprintCache: a Bloom filter
// in front of an age-indexed exact LRU, sized for capacity unique
// fingerprints retained for window.
func NewFingerprintCache(capacity int, window time.Duration) FingerprintCache {
	return &bloomLRUCache{
		bloom: newBloomFilter(capacity, 0.01),
		lru:   newExactLRU(capacity, window),
	}
}

func (c *bloomLRUCache) Seen(fingerprint string) bool {
	if !c.bloom.addAndTest(fingerprint) {
		// bloom definitely hadn't seen it; bloom.add already happened via addAndTest
		c.lru.seen(fingerprint)
		return false
	}
	return c.lru.seen(fingerprint)
}

func (c *bloomLRUCache) Sweep() int {
	return c.lru.sweep()
}

func (c *bloomLRUCache) Len() int {
	return c.lru.len()
}
