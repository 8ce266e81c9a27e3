package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/l3aro/go-scfg/pkg/cfg"
)

// FileName is the name of the persisted cache inside the cache directory.
const FileName = "graphs.msgpack"

// Key derives the cache key of a listing restructured with a given
// opcode table. table is the encoded table, so two tables sharing a name
// still get different keys. The stage is part of the key since every
// stage produces a different graph.
func Key(listing, table []byte, stage string) string {
	h := sha256.New()
	h.Write(table)
	h.Write([]byte{0})
	h.Write([]byte(stage))
	h.Write([]byte{0})
	h.Write(listing)
	return hex.EncodeToString(h.Sum(nil))
}

// GraphCacheOptions configures a GraphCache.
type GraphCacheOptions struct {
	// Dir is where the cache is persisted. Empty disables persistence.
	Dir string

	// MaxGraphs bounds the number of cached graphs; 0 means 256.
	MaxGraphs int

	// MaxBytes bounds the encoded size of the cached graphs; 0 means 64 MiB.
	MaxBytes int64
}

// GraphCache stores exported graphs keyed by Key.
type GraphCache struct {
	mu    sync.Mutex
	cache *LRUCache
	path  string
	dirty bool
}

// NewGraphCache creates a graph cache and loads its persisted contents,
// if any.
func NewGraphCache(opts GraphCacheOptions) (*GraphCache, error) {
	if opts.MaxGraphs == 0 {
		opts.MaxGraphs = 256
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 64 * 1024 * 1024
	}

	gc := &GraphCache{
		cache: New(Options{MaxSize: opts.MaxGraphs, MaxBytes: opts.MaxBytes}),
	}
	if opts.Dir != "" {
		gc.path = filepath.Join(opts.Dir, FileName)
		if err := LoadFromFile(gc.cache, gc.path); err != nil {
			return nil, err
		}
	}
	return gc, nil
}

// Get returns the graph stored under key. A stored entry that cannot be
// decoded is dropped and reported as an error.
func (gc *GraphCache) Get(key string) (*cfg.CFGInfo, bool, error) {
	data, ok := gc.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	info, err := cfg.Unmarshal(data)
	if err != nil {
		gc.cache.Delete(key)
		gc.markDirty()
		return nil, false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	return info, true, nil
}

// Put stores info under key.
func (gc *GraphCache) Put(key string, info *cfg.CFGInfo) error {
	data, err := info.Marshal()
	if err != nil {
		return err
	}
	gc.cache.Set(key, data)
	gc.markDirty()
	return nil
}

func (gc *GraphCache) markDirty() {
	gc.mu.Lock()
	gc.dirty = true
	gc.mu.Unlock()
}

// Len returns the number of cached graphs.
func (gc *GraphCache) Len() int {
	return gc.cache.Len()
}

// Stats returns statistics of the underlying LRU cache.
func (gc *GraphCache) Stats() Stats {
	return gc.cache.Stats()
}

// Clear drops every cached graph.
func (gc *GraphCache) Clear() {
	gc.cache.Clear()
	gc.markDirty()
}

// Close persists the cache if it changed since it was loaded.
func (gc *GraphCache) Close() error {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	if gc.path == "" || !gc.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(gc.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := PersistToFile(gc.cache, gc.path); err != nil {
		return errors.Join(err, os.Remove(gc.path))
	}
	gc.dirty = false
	return nil
}
