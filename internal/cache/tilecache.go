package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TileCache is the in-memory tier in front of PersistentTileCache.
// Lookups hit RAM first, then disk; disk hits are promoted.
type TileCache struct {
	mem  *lru.Cache[TileKey, []byte]
	disk *PersistentTileCache // optional

	hits, misses atomic.Int64
}

// NewTileCache creates a two-tier cache holding up to size tiles in memory.
// disk may be nil for a memory-only cache.
func NewTileCache(size int, disk *PersistentTileCache) (*TileCache, error) {
	if size <= 0 {
		size = 256
	}
	mem, err := lru.New[TileKey, []byte](size)
	if err != nil {
		return nil, err
	}
	return &TileCache{mem: mem, disk: disk}, nil
}

// Get returns cached tile bytes
func (c *TileCache) Get(k TileKey) ([]byte, bool) {
	if data, ok := c.mem.Get(k); ok {
		c.hits.Add(1)
		return data, true
	}
	if c.disk != nil {
		if data, ok := c.disk.Get(k); ok {
			c.mem.Add(k, data)
			c.hits.Add(1)
			return data, true
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores tile bytes in memory and on disk
func (c *TileCache) Set(k TileKey, data []byte) error {
	c.mem.Add(k, data)
	if c.disk != nil {
		return c.disk.Set(k, data)
	}
	return nil
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup
func (c *TileCache) HitRatio() float64 {
	h, m := c.hits.Load(), c.misses.Load()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

// Len returns the number of tiles held in memory
func (c *TileCache) Len() int {
	return c.mem.Len()
}

// Purge drops the memory tier; the disk tier is left alone
func (c *TileCache) Purge() {
	c.mem.Purge()
}
