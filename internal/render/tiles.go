package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	// Tile servers deliver PNG or JPEG; register both decoders.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	perrors "github.com/louisbranch/raidatlas/internal/platform/errors"
	"github.com/louisbranch/raidatlas/internal/sourcedata"
)

// DefaultTileConcurrency bounds in-flight tile requests for one map so a
// deep pyramid (thousands of tiles) cannot overwhelm the remote service or
// the local process.
const DefaultTileConcurrency = 32

// TargetZoom resolves the zoom level a pyramid is fetched at: offset steps
// below the source maximum, clamped to never go below the source minimum.
func TargetZoom(minZoom, maxZoom, offset int) int {
	zoom := maxZoom - offset
	if zoom < minZoom {
		zoom = minZoom
	}
	return zoom
}

// GridSize returns the pyramid's tiles-per-axis at the given zoom.
func GridSize(zoom int) int {
	return 1 << zoom
}

// ExpandTileURL substitutes {z}, {x} and {y} in a tile URL template.
func ExpandTileURL(template string, zoom, x, y int) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(zoom),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(template)
}

// renderTiles downloads a full tile grid and composes it into one raster.
//
// All tiles for the map download concurrently under the configured limit;
// any transport, status or decode failure fails the whole map and nothing
// is written (the raster lands on disk only after every tile succeeded).
// Composition order is irrelevant since each tile owns a disjoint canvas
// region.
func (r *Renderer) renderTiles(ctx context.Context, slug string, src sourcedata.TileSource) (Asset, error) {
	relPath, diskPath := r.rasterPaths(slug)

	zoom := TargetZoom(src.MinZoom, src.MaxZoom, r.cfg.ZoomOffset)
	grid := GridSize(zoom)
	canvasSize := grid * src.TileSize
	size := [2]float32{float32(src.TileSize), float32(src.TileSize)}

	if !r.cfg.Force {
		_, ok, err := r.cache.Lookup(ctx, slug, diskPath)
		if err != nil {
			return Asset{}, perrors.Wrap(perrors.CodeCacheIO,
				fmt.Sprintf("lookup cached raster for %q", slug), err)
		}
		if ok {
			return Asset{Path: relPath, Size: size}, nil
		}
	}

	tiles := make([][]byte, grid*grid)

	r.progress.Start(fmt.Sprintf("%s tiles", slug), len(tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for x := 0; x < grid; x++ {
		for y := 0; y < grid; y++ {
			idx := x*grid + y
			url := ExpandTileURL(src.URLTemplate, zoom, x, y)
			g.Go(func() error {
				data, err := r.fetch(gctx, url, "tile", slug)
				if err != nil {
					return perrors.WrapWithMetadata(perrors.CodeTileFetchFailed,
						fmt.Sprintf("tile %d/%d/%d for %q", zoom, x, y, slug),
						map[string]string{
							"map":  slug,
							"tile": fmt.Sprintf("%d/%d/%d", zoom, x, y),
						}, err)
				}
				tiles[idx] = data
				r.progress.Add(1)
				return nil
			})
		}
	}
	err := g.Wait()
	r.progress.Finish()
	if err != nil {
		return Asset{}, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	r.progress.Start(fmt.Sprintf("%s composing", slug), len(tiles))
	for x := 0; x < grid; x++ {
		for y := 0; y < grid; y++ {
			tile, _, err := image.Decode(bytes.NewReader(tiles[x*grid+y]))
			if err != nil {
				r.progress.Finish()
				return Asset{}, perrors.WrapWithMetadata(perrors.CodeDecodeFailed,
					fmt.Sprintf("decode tile %d/%d/%d for %q", zoom, x, y, slug),
					map[string]string{
						"map":  slug,
						"tile": fmt.Sprintf("%d/%d/%d", zoom, x, y),
					}, err)
			}

			// Destination rect is clipped against the canvas, so an
			// oversized tile cannot write out of bounds.
			bounds := tile.Bounds()
			target := image.Rect(
				x*src.TileSize,
				y*src.TileSize,
				x*src.TileSize+bounds.Dx(),
				y*src.TileSize+bounds.Dy(),
			)
			xdraw.Draw(canvas, target, tile, bounds.Min, xdraw.Src)
			r.progress.Add(1)
		}
	}
	r.progress.Finish()

	if err := writeRaster(diskPath, canvas); err != nil {
		return Asset{}, err
	}

	if err := r.cache.Store(ctx, CachedRaster{
		Slug:   slug,
		Path:   diskPath,
		Width:  canvasSize,
		Height: canvasSize,
	}); err != nil {
		return Asset{}, perrors.Wrap(perrors.CodeCacheIO,
			fmt.Sprintf("record raster for %q", slug), err)
	}

	return Asset{Path: relPath, Size: size}, nil
}
