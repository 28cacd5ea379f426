package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/goccy/go-json"
)

const indexFile = "cache_index.json"

// TileKey addresses one slippy-map tile of a provider
type TileKey struct {
	Provider string
	Z, X, Y  int
}

// String returns the index key "{provider}:{z}:{x}:{y}"
func (k TileKey) String() string {
	return fmt.Sprintf("%s:%d:%d:%d", k.Provider, k.Z, k.X, k.Y)
}

// PersistentTileCache provides disk-based caching with OGC ZXY structure.
// Layout: baseDir/{provider}/{z}/{x}/{y}{ext}, index in baseDir/cache_index.json
type PersistentTileCache struct {
	baseDir  string
	ext      string
	maxSize  int64 // bytes
	currSize int64 // atomic
	ttl      time.Duration

	mu       sync.RWMutex
	metadata map[string]*TileMetadata

	saveIndex func(func())
	evictChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// TileMetadata stores information about a cached tile
type TileMetadata struct {
	Key        string    `json:"key"`
	Provider   string    `json:"provider"`
	Z          int       `json:"z"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Size       int64     `json:"size"`
	AccessTime time.Time `json:"accessTime"`
	CreateTime time.Time `json:"createTime"`
}

// NewPersistentTileCache opens (or creates) a disk cache rooted at baseDir.
// ext is the tile file extension including the dot, e.g. ".png".
func NewPersistentTileCache(baseDir, ext string, maxSizeMB, ttlDays int) (*PersistentTileCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if ext == "" {
		ext = ".png"
	}

	c := &PersistentTileCache{
		baseDir:   baseDir,
		ext:       ext,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		ttl:       time.Duration(ttlDays) * 24 * time.Hour,
		metadata:  make(map[string]*TileMetadata),
		saveIndex: debounce.New(2 * time.Second),
		evictChan: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	if err := c.loadMetadata(); err != nil {
		if err := c.rebuildMetadata(); err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	go c.maintenanceWorker()

	return c, nil
}

// Get retrieves a tile from disk
func (c *PersistentTileCache) Get(k TileKey) ([]byte, bool) {
	key := k.String()
	c.mu.RLock()
	meta, exists := c.metadata[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.ttl > 0 && time.Since(meta.CreateTime) > c.ttl {
		c.evictTile(key)
		return nil, false
	}

	data, err := os.ReadFile(c.buildFilePath(meta))
	if err != nil {
		c.evictTile(key)
		return nil, false
	}

	c.mu.Lock()
	meta.AccessTime = time.Now()
	c.mu.Unlock()
	c.scheduleSave()

	return data, true
}

// Set stores a tile on disk
func (c *PersistentTileCache) Set(k TileKey, data []byte) error {
	key := k.String()
	now := time.Now()
	meta := &TileMetadata{
		Key:        key,
		Provider:   k.Provider,
		Z:          k.Z,
		X:          k.X,
		Y:          k.Y,
		Size:       int64(len(data)),
		AccessTime: now,
		CreateTime: now,
	}

	filePath := c.buildFilePath(meta)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	c.mu.Lock()
	if old, ok := c.metadata[key]; ok {
		atomic.AddInt64(&c.currSize, -old.Size)
	}
	c.metadata[key] = meta
	c.mu.Unlock()

	if atomic.AddInt64(&c.currSize, meta.Size) > c.maxSize {
		select {
		case c.evictChan <- struct{}{}:
		default:
		}
	}

	c.scheduleSave()
	return nil
}

func (c *PersistentTileCache) buildFilePath(meta *TileMetadata) string {
	return filepath.Join(c.baseDir, meta.Provider, strconv.Itoa(meta.Z),
		strconv.Itoa(meta.X), strconv.Itoa(meta.Y)+c.ext)
}

func (c *PersistentTileCache) evictTile(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// removeLocked deletes one entry; c.mu must be held for writing.
func (c *PersistentTileCache) removeLocked(key string) {
	meta, ok := c.metadata[key]
	if !ok {
		return
	}
	os.Remove(c.buildFilePath(meta))
	delete(c.metadata, key)
	atomic.AddInt64(&c.currSize, -meta.Size)
}

func (c *PersistentTileCache) scheduleSave() {
	c.saveIndex(func() {
		if err := c.saveMetadata(); err != nil {
			fmt.Fprintf(os.Stderr, "[Cache] failed to save index: %v\n", err)
		}
	})
}

func (c *PersistentTileCache) maintenanceWorker() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.evictChan:
			c.evictOldTiles()
		case <-ticker.C:
			c.evictExpiredTiles()
		}
	}
}

// evictOldTiles removes least recently used tiles until the cache is at 80% of its limit
func (c *PersistentTileCache) evictOldTiles() {
	c.mu.Lock()
	defer c.mu.Unlock()

	currSize := atomic.LoadInt64(&c.currSize)
	if currSize <= c.maxSize {
		return
	}
	targetSize := c.maxSize * 8 / 10

	entries := make([]*TileMetadata, 0, len(c.metadata))
	for _, meta := range c.metadata {
		entries = append(entries, meta)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AccessTime.Before(entries[j].AccessTime)
	})

	for _, e := range entries {
		if currSize <= targetSize {
			break
		}
		c.removeLocked(e.Key)
		currSize -= e.Size
	}

	c.scheduleSave()
}

func (c *PersistentTileCache) evictExpiredTiles() {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, meta := range c.metadata {
		if time.Since(meta.CreateTime) > c.ttl {
			c.removeLocked(key)
			evicted++
		}
	}

	if evicted > 0 {
		c.scheduleSave()
	}
}

func (c *PersistentTileCache) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(c.baseDir, indexFile))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata map[string]*TileMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("failed to parse metadata: %w", err)
	}
	if metadata == nil {
		metadata = make(map[string]*TileMetadata)
	}

	var totalSize int64
	for _, meta := range metadata {
		totalSize += meta.Size
	}

	c.mu.Lock()
	c.metadata = metadata
	c.mu.Unlock()
	atomic.StoreInt64(&c.currSize, totalSize)

	return nil
}

// saveMetadata writes the index atomically via a temp file
func (c *PersistentTileCache) saveMetadata() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	metaPath := filepath.Join(c.baseDir, indexFile)
	tempPath := metaPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tempPath, metaPath); err != nil {
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}

	return nil
}

// rebuildMetadata scans baseDir for {provider}/{z}/{x}/{y}{ext} files
func (c *PersistentTileCache) rebuildMetadata() error {
	metadata := make(map[string]*TileMetadata)
	var totalSize int64

	err := filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != c.ext {
			return nil
		}

		relPath, _ := filepath.Rel(c.baseDir, path)
		parts := strings.Split(relPath, string(os.PathSeparator))
		if len(parts) != 4 {
			return nil
		}

		z, errZ := strconv.Atoi(parts[1])
		x, errX := strconv.Atoi(parts[2])
		y, errY := strconv.Atoi(strings.TrimSuffix(parts[3], c.ext))
		if errZ != nil || errX != nil || errY != nil {
			return nil
		}

		k := TileKey{Provider: parts[0], Z: z, X: x, Y: y}
		metadata[k.String()] = &TileMetadata{
			Key:        k.String(),
			Provider:   k.Provider,
			Z:          z,
			X:          x,
			Y:          y,
			Size:       info.Size(),
			AccessTime: info.ModTime(),
			CreateTime: info.ModTime(),
		}
		totalSize += info.Size()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan cache directory: %w", err)
	}

	c.mu.Lock()
	c.metadata = metadata
	c.mu.Unlock()
	atomic.StoreInt64(&c.currSize, totalSize)

	return c.saveMetadata()
}

// Stats returns cache statistics
func (c *PersistentTileCache) Stats() (entries int, sizeBytes int64, maxBytes int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metadata), atomic.LoadInt64(&c.currSize), c.maxSize
}

// Clear removes all cached tiles
func (c *PersistentTileCache) Clear() error {
	c.mu.Lock()
	for key := range c.metadata {
		c.removeLocked(key)
	}
	c.mu.Unlock()
	return c.saveMetadata()
}

// Close stops the maintenance worker and flushes the index
func (c *PersistentTileCache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.saveMetadata()
}

// GetCachePath returns the base directory of the cache
func (c *PersistentTileCache) GetCachePath() string {
	return c.baseDir
}
