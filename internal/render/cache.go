package render

import "context"

// CachedRaster records one previously built raster.
type CachedRaster struct {
	Slug   string
	Path   string // on-disk path
	Width  int
	Height int
}

// Cache is the raster cache collaborator. It is passed in explicitly so the
// renderers stay testable without real build output lying around.
//
// Lookup must report a miss when the raster file is gone from disk, whatever
// the catalog says: disk presence is authoritative for the short-circuit.
type Cache interface {
	Lookup(ctx context.Context, slug, diskPath string) (CachedRaster, bool, error)
	Store(ctx context.Context, raster CachedRaster) error
}
