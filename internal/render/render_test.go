package render

import (
	"context"
	"sync"
)

// memCache is an in-memory Cache for renderer tests. Entries survive only
// for the test's lifetime; disk presence is not consulted.
type memCache struct {
	mu      sync.Mutex
	rasters map[string]CachedRaster
	stores  int
}

func newMemCache() *memCache {
	return &memCache{rasters: map[string]CachedRaster{}}
}

func (c *memCache) Lookup(_ context.Context, slug, _ string) (CachedRaster, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raster, ok := c.rasters[slug]
	return raster, ok, nil
}

func (c *memCache) Store(_ context.Context, raster CachedRaster) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rasters[raster.Slug] = raster
	c.stores++
	return nil
}
