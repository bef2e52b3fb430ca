// Package cache keeps per-file analysis results between passes. Hosts
// that analyze repeatedly (watch loops, daemons) look results up by
// canonical path and skip re-parsing files whose content hash still
// matches.
package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion tags persisted snapshots so stale formats are
// rejected instead of misread.
const snapshotVersion = 1

// Cache is the lookup surface the analyzer works against.
type Cache interface {
	// Lookup retrieves the statics stored for a path. It returns
	// (nil, false) when the path is unknown or the stored content
	// hash no longer matches.
	Lookup(path, hash string) (*FileStatics, bool)

	// Store saves the statics for a path, evicting old entries if
	// the cache is full.
	Store(path string, statics *FileStatics)

	// Delete removes a path from the cache.
	Delete(path string)

	// Clear removes all entries from the cache.
	Clear()

	// Len returns the number of entries in the cache.
	Len() int

	// Save persists the cache to the given writer.
	Save(w io.Writer) error

	// Load restores the cache from the given reader.
	Load(r io.Reader) error
}

// Entry is a cached result with access metadata.
type Entry struct {
	Path       string
	Statics    *FileStatics
	AccessedAt time.Time
	CreatedAt  time.Time
	Size       int // estimated size in bytes
}

// LRUCache is an in-memory LRU cache with optional disk persistence.
type LRUCache struct {
	mu           sync.RWMutex
	items        map[string]*listItem
	lru          *list // most recent at front
	maxSize      int
	maxBytes     int64
	currentBytes int64
	onEvict      func(path string, statics *FileStatics)
}

// listItem is an item in the doubly-linked list.
type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

// list represents a doubly-linked list.
type list struct {
	head *listItem // most recently accessed
	tail *listItem // least recently accessed
	len  int
}

func newList() *list {
	return &list{}
}

// moveToFront moves an item to the front (most recently used).
func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}

	if item.prev != nil {
		item.prev.next = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	}
	if item == l.tail {
		l.tail = item.prev
	}

	item.prev = nil
	item.next = l.head
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item

	if l.tail == nil {
		l.tail = item
	}
}

// removeBack removes and returns the least recently used item.
func (l *list) removeBack() *listItem {
	if l.tail == nil {
		return nil
	}

	item := l.tail
	l.tail = item.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	l.len--
	return item
}

// pushFront adds an item to the front of the list.
func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

// Options configures the LRU cache.
type Options struct {
	// MaxSize is the maximum number of entries.
	// 0 means unlimited.
	MaxSize int

	// MaxBytes is the approximate maximum size in bytes.
	// 0 means unlimited.
	MaxBytes int64

	// OnEvict is called when an entry is evicted.
	OnEvict func(path string, statics *FileStatics)
}

// New creates a new LRU cache with the given options.
func New(opts Options) *LRUCache {
	return &LRUCache{
		items:    make(map[string]*listItem),
		lru:      newList(),
		maxSize:  opts.MaxSize,
		maxBytes: opts.MaxBytes,
		onEvict:  opts.OnEvict,
	}
}

// Lookup retrieves the statics stored for a path. A hit requires the
// stored content hash to match; an entry for a file that changed on
// disk is a miss and keeps its place in the eviction order.
func (c *LRUCache) Lookup(path, hash string) (*FileStatics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[path]
	if !found {
		return nil, false
	}
	if item.Statics == nil || item.Statics.Hash != hash {
		return nil, false
	}

	item.AccessedAt = time.Now()
	c.lru.moveToFront(item)
	return item.Statics, true
}

// Store saves the statics for a path.
func (c *LRUCache) Store(path string, statics *FileStatics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := estimateSize(statics)

	if item, exists := c.items[path]; exists {
		c.currentBytes -= int64(item.Size)
		item.Statics = statics
		item.Size = size
		item.AccessedAt = time.Now()
		c.currentBytes += int64(size)
		c.lru.moveToFront(item)
		c.evictIfNeeded()
		return
	}

	item := &listItem{
		Entry: Entry{
			Path:       path,
			Statics:    statics,
			AccessedAt: time.Now(),
			CreatedAt:  time.Now(),
			Size:       size,
		},
	}

	c.items[path] = item
	c.lru.pushFront(item)
	c.currentBytes += int64(size)

	c.evictIfNeeded()
}

// Delete removes a path from the cache.
func (c *LRUCache) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[path]
	if !found {
		return
	}

	if item.prev != nil {
		item.prev.next = item.next
	} else {
		c.lru.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		c.lru.tail = item.prev
	}
	c.lru.len--

	delete(c.items, path)
	c.currentBytes -= int64(item.Size)

	if c.onEvict != nil {
		c.onEvict(path, item.Statics)
	}
}

// Clear removes all entries from the cache.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*listItem)
	c.lru = newList()
	c.currentBytes = 0
}

// Len returns the number of entries in the cache.
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// CurrentBytes returns the approximate current size in bytes.
func (c *LRUCache) CurrentBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentBytes
}

// evictIfNeeded evicts entries if the cache exceeds its limits.
func (c *LRUCache) evictIfNeeded() {
	for c.shouldEvict() {
		item := c.lru.removeBack()
		if item == nil {
			break
		}
		delete(c.items, item.Path)
		c.currentBytes -= int64(item.Size)

		if c.onEvict != nil {
			c.onEvict(item.Path, item.Statics)
		}
	}
}

// shouldEvict returns true if the cache should evict entries.
func (c *LRUCache) shouldEvict() bool {
	if c.maxSize > 0 && c.lru.len > c.maxSize {
		return true
	}
	if c.maxBytes > 0 && c.currentBytes >= c.maxBytes {
		return true
	}
	return false
}

// snapshot collects the entries front to back so a restored cache
// carries the same eviction order.
func (c *LRUCache) snapshot() snapshotDoc {
	doc := snapshotDoc{Version: snapshotVersion}
	for item := c.lru.head; item != nil; item = item.next {
		doc.Entries = append(doc.Entries, entryDoc{
			Path:       item.Path,
			Statics:    docFromStatics(item.Statics),
			AccessedAt: item.AccessedAt,
			CreatedAt:  item.CreatedAt,
		})
	}
	return doc
}

// restore rebuilds the cache state from a snapshot.
func (c *LRUCache) restore(doc snapshotDoc) error {
	if doc.Version != snapshotVersion {
		return fmt.Errorf("unsupported cache snapshot version %d", doc.Version)
	}

	c.items = make(map[string]*listItem)
	c.lru = newList()
	c.currentBytes = 0

	for i := len(doc.Entries) - 1; i >= 0; i-- {
		entry := doc.Entries[i]
		statics := staticsFromDoc(entry.Statics)
		item := &listItem{
			Entry: Entry{
				Path:       entry.Path,
				Statics:    statics,
				AccessedAt: entry.AccessedAt,
				CreatedAt:  entry.CreatedAt,
				Size:       estimateSize(statics),
			},
		}
		c.items[entry.Path] = item
		c.lru.pushFront(item)
		c.currentBytes += int64(item.Size)
	}

	return nil
}

// Save persists the cache to a writer using msgpack.
func (c *LRUCache) Save(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enc := msgpack.NewEncoder(w)
	return enc.Encode(c.snapshot())
}

// Load restores the cache from a reader using msgpack.
func (c *LRUCache) Load(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doc snapshotDoc
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}
	return c.restore(doc)
}

// SaveJSON persists the cache to a writer using JSON, for inspection.
func (c *LRUCache) SaveJSON(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.snapshot())
}

// LoadJSON restores the cache from a reader using JSON.
func (c *LRUCache) LoadJSON(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doc snapshotDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}
	return c.restore(doc)
}

// PersistToFile saves the cache to a file.
func PersistToFile(c Cache, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()

	return c.Save(f)
}

// LoadFromFile loads the cache from a file.
func LoadFromFile(c Cache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No cache file is not an error
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}

// estimateSize estimates the in-memory size of statics in bytes.
func estimateSize(s *FileStatics) int {
	if s == nil {
		return 0
	}
	const lineSize, arcSize, overhead = 8, 16, 64
	size := overhead + len(s.Hash)
	size += s.Statements.Len() * lineSize
	size += (s.Branches.Len() + s.Conditions.Len() + s.Bytecode.Len()) * arcSize
	return size
}

// Stats returns cache statistics.
type Stats struct {
	Length       int   `json:"length"`
	CurrentBytes int64 `json:"current_bytes"`
	HitCount     int64 `json:"hit_count"`
	MissCount    int64 `json:"miss_count"`
}

// NewStatsCache creates a cache that tracks statistics.
func NewStatsCache(opts Options) *StatsCache {
	return &StatsCache{
		LRUCache: New(opts),
	}
}

// StatsCache wraps an LRU cache with statistics tracking.
type StatsCache struct {
	*LRUCache
	mu        sync.RWMutex
	hitCount  int64
	missCount int64
}

// Lookup retrieves statics and updates statistics. A stale hash counts
// as a miss.
func (c *StatsCache) Lookup(path, hash string) (*FileStatics, bool) {
	statics, found := c.LRUCache.Lookup(path, hash)
	c.mu.Lock()
	if found {
		c.hitCount++
	} else {
		c.missCount++
	}
	c.mu.Unlock()
	return statics, found
}

// Stats returns the current cache statistics.
func (c *StatsCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Length:       c.LRUCache.Len(),
		CurrentBytes: c.LRUCache.CurrentBytes(),
		HitCount:     c.hitCount,
		MissCount:    c.missCount,
	}
}

// HitRate returns the cache hit rate.
func (c *StatsCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hitCount + c.missCount
	if total == 0 {
		return 0
	}
	return float64(c.hitCount) / float64(total)
}

// ResetStats resets the statistics counters.
func (c *StatsCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hitCount = 0
	c.missCount = 0
}

// NewShardedCache creates a cache with multiple shards so the analyzer
// workers contend less.
func NewShardedCache(numShards int, opts Options) *ShardedCache {
	shards := make([]*LRUCache, numShards)
	for i := 0; i < numShards; i++ {
		shards[i] = New(opts)
	}
	return &ShardedCache{
		shards: shards,
	}
}

// ShardedCache is a sharded LRU cache for better concurrency.
type ShardedCache struct {
	shards []*LRUCache
}

// shardIndex returns the shard index for a path.
func (s *ShardedCache) shardIndex(path string) uint32 {
	var hash uint32
	for _, c := range path {
		hash = hash*31 + uint32(c)
	}
	return hash % uint32(len(s.shards))
}

// Lookup retrieves statics from the appropriate shard.
func (s *ShardedCache) Lookup(path, hash string) (*FileStatics, bool) {
	return s.shards[s.shardIndex(path)].Lookup(path, hash)
}

// Store saves statics into the appropriate shard.
func (s *ShardedCache) Store(path string, statics *FileStatics) {
	s.shards[s.shardIndex(path)].Store(path, statics)
}

// Delete deletes a path from the appropriate shard.
func (s *ShardedCache) Delete(path string) {
	s.shards[s.shardIndex(path)].Delete(path)
}

// Clear clears all shards.
func (s *ShardedCache) Clear() {
	for _, shard := range s.shards {
		shard.Clear()
	}
}

// Len returns the total number of entries across all shards.
func (s *ShardedCache) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}

// Save saves all shards to a writer.
func (s *ShardedCache) Save(w io.Writer) error {
	docs := make([]snapshotDoc, len(s.shards))
	for i, shard := range s.shards {
		shard.mu.RLock()
		docs[i] = shard.snapshot()
		shard.mu.RUnlock()
	}

	enc := msgpack.NewEncoder(w)
	return enc.Encode(docs)
}

// Load loads all shards from a reader. A snapshot saved with a
// different shard count fills only the shards it has entries for.
func (s *ShardedCache) Load(r io.Reader) error {
	var docs []snapshotDoc
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&docs); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}

	for i, doc := range docs {
		if i >= len(s.shards) {
			break
		}
		shard := s.shards[i]
		shard.mu.Lock()
		err := shard.restore(doc)
		shard.mu.Unlock()
		if err != nil {
			return err
		}
	}

	return nil
}

// Ensure the implementations satisfy the Cache interface
var _ Cache = (*LRUCache)(nil)
var _ Cache = (*StatsCache)(nil)
var _ Cache = (*ShardedCache)(nil)
