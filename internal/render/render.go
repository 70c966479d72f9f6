// Package render materializes one raster per map from its asset source,
// either by rasterizing a vector document or by composing a tile pyramid.
package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	perrors "github.com/louisbranch/raidatlas/internal/platform/errors"
	"github.com/louisbranch/raidatlas/internal/sourcedata"
)

// rasterDir is the bundle-relative directory holding one PNG per map.
const rasterDir = "maps"

// Asset describes one produced raster.
type Asset struct {
	// Path is the bundle-relative raster identifier (maps/<slug>.png).
	Path string

	// Size is the raster's reference dimensions. Vector sources report the
	// source document size (the PNG on disk is supersampled); tile sources
	// report a single tile's size, matching the reference renderer's
	// logical coordinate space.
	Size [2]float32
}

// Config carries the per-run rendering knobs.
type Config struct {
	// OutDir is the bundle root; rasters land in OutDir/maps.
	OutDir string

	// UserAgent is sent on every asset request.
	UserAgent string

	// Concurrency bounds in-flight tile requests within one map build.
	Concurrency int

	// ZoomOffset shifts a tile pyramid's target zoom down from the
	// source's maximum, trading resolution for file size.
	ZoomOffset int

	// Force disables the cache short-circuit and rebuilds every raster.
	Force bool
}

// Renderer builds rasters. The zero value is not usable; use New.
type Renderer struct {
	cfg        Config
	cache      Cache
	progress   Progress
	httpClient *http.Client
}

// New creates a renderer. A nil httpClient falls back to
// http.DefaultClient and a nil progress reports nothing.
func New(cfg Config, cache Cache, progress Progress, httpClient *http.Client) *Renderer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultTileConcurrency
	}
	if progress == nil {
		progress = NopProgress{}
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Renderer{
		cfg:        cfg,
		cache:      cache,
		progress:   progress,
		httpClient: httpClient,
	}
}

// Render produces the raster for one map. The source union selects the
// strategy: vector documents rasterize once, tile pyramids download and
// compose. Each arm owns its cache short-circuit.
func (r *Renderer) Render(ctx context.Context, slug string, source sourcedata.Source) (Asset, error) {
	switch src := source.(type) {
	case sourcedata.SVGSource:
		return r.renderSVG(ctx, slug, src)
	case sourcedata.TileSource:
		return r.renderTiles(ctx, slug, src)
	default:
		return Asset{}, fmt.Errorf("map %q has unsupported source %T", slug, source)
	}
}

// rasterPaths returns the bundle-relative identifier and the on-disk path
// for a map's raster.
func (r *Renderer) rasterPaths(slug string) (rel string, disk string) {
	rel = path.Join(rasterDir, slug+".png")
	disk = filepath.Join(r.cfg.OutDir, rasterDir, slug+".png")
	return rel, disk
}

// fetch downloads one asset resource, failing on any non-2xx status.
func (r *Renderer) fetch(ctx context.Context, url, resource, slug string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request for %q: %w", resource, slug, err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s for %q: %w", resource, slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, perrors.WithMetadata(perrors.CodeHTTPStatus,
			fmt.Sprintf("%s fetch for %q returned %s", resource, slug, resp.Status),
			map[string]string{
				"map":      slug,
				"resource": resource,
				"status":   strconv.Itoa(resp.StatusCode),
			})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s for %q: %w", resource, slug, err)
	}
	return data, nil
}

// writeRaster encodes img as PNG at diskPath, creating parent directories.
// The raster is written in one shot only after the full canvas is complete.
func writeRaster(diskPath string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return fmt.Errorf("create raster dir: %w", err)
	}

	f, err := os.Create(diskPath)
	if err != nil {
		return fmt.Errorf("create raster file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return perrors.Wrap(perrors.CodeRasterEncode, fmt.Sprintf("encode raster %s", diskPath), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close raster file: %w", err)
	}
	return nil
}
