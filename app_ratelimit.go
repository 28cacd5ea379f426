package main

import (
	"globe-desktop/internal/ratelimit"
)

// Rate Limit Management Functions (Wails-exported)

// GetRateLimitStatus returns the current rate limit state for a provider
func (a *App) GetRateLimitStatus(provider string) *ratelimit.RateLimitEvent {
	if a.rateLimitHandler != nil {
		return a.rateLimitHandler.GetCurrentState(provider)
	}
	return nil
}

// IsRateLimited checks if a provider is currently rate limited
func (a *App) IsRateLimited(provider string) bool {
	if a.rateLimitHandler != nil {
		return a.rateLimitHandler.IsRateLimited(provider)
	}
	return false
}

// ResetRateLimit lets the user retry a provider before its cooldown ends
func (a *App) ResetRateLimit(provider string) {
	if a.rateLimitHandler != nil {
		a.rateLimitHandler.Reset(provider)
	}
}

// Cache Management Functions (Wails-exported)

// CacheStats represents cache statistics for frontend
type CacheStats struct {
	Entries        int     `json:"entries"`
	SizeBytes      int64   `json:"sizeBytes"`
	MaxBytes       int64   `json:"maxBytes"`
	SizeMB         float64 `json:"sizeMB"`
	MaxMB          float64 `json:"maxMB"`
	CachePath      string  `json:"cachePath"`
	MemoryEntries  int     `json:"memoryEntries"`
	MemoryHitRatio float64 `json:"memoryHitRatio"`
	Textures       []int   `json:"textures"`
}

// GetCacheStats returns current cache statistics
func (a *App) GetCacheStats() CacheStats {
	stats := CacheStats{Textures: a.textures.CachedZooms()}
	if a.tileCache != nil {
		stats.MemoryEntries = a.tileCache.Len()
		stats.MemoryHitRatio = a.tileCache.HitRatio()
	}
	if a.diskCache == nil {
		return stats
	}

	entries, sizeBytes, maxBytes := a.diskCache.Stats()
	stats.Entries = entries
	stats.SizeBytes = sizeBytes
	stats.MaxBytes = maxBytes
	stats.SizeMB = float64(sizeBytes) / 1024 / 1024
	stats.MaxMB = float64(maxBytes) / 1024 / 1024
	stats.CachePath = a.diskCache.GetCachePath()
	return stats
}

// ClearCache removes all cached tiles. Built composites stay in memory.
func (a *App) ClearCache() error {
	if a.tileCache != nil {
		a.tileCache.Purge()
	}
	if a.diskCache != nil {
		return a.diskCache.Clear()
	}
	return nil
}
