// Package fetchmaps builds the raid-map bundle: it pulls the upstream map
// descriptors and enrichment data, renders one raster per interactive map,
// and writes the manifest next to the rasters.
package fetchmaps

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/raidatlas/internal/bundle"
	"github.com/louisbranch/raidatlas/internal/maps"
	"github.com/louisbranch/raidatlas/internal/platform/config"
	"github.com/louisbranch/raidatlas/internal/render"
	"github.com/louisbranch/raidatlas/internal/render/rastercache"
	"github.com/louisbranch/raidatlas/internal/sourcedata"
)

const defaultZoomOffset = 2

// cacheFile is the raster catalog, kept inside the output directory so
// wiping the bundle also wipes the cache.
const cacheFile = "rastercache.db"

// Config holds configuration for one bundle build.
type Config struct {
	OutDir     string
	ZoomOffset int
	Force      bool

	MapsURL     string `env:"RAIDATLAS_MAPS_URL" envDefault:"https://raw.githubusercontent.com/the-hideout/tarkov-dev/main/src/data/maps.json"`
	DataURL     string `env:"RAIDATLAS_DATA_URL" envDefault:"https://api.tarkov.dev/graphql"`
	UserAgent   string `env:"RAIDATLAS_USER_AGENT" envDefault:"raidatlas/1.0"`
	Concurrency int    `env:"RAIDATLAS_TILE_CONCURRENCY" envDefault:"32"`
}

// ParseConfig parses CLI flags and environment variables into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config

	fs.StringVar(&cfg.OutDir, "out", "assets", "output directory for rasters and manifest")
	fs.IntVar(&cfg.ZoomOffset, "tile-zoom-offset", defaultZoomOffset,
		"zoom levels below each tile source's maximum")
	fs.BoolVar(&cfg.Force, "force", false, "rebuild every raster, ignoring the cache")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.OutDir) == "" {
		return Config{}, errors.New("out is required")
	}
	if cfg.ZoomOffset < 0 {
		return Config{}, errors.New("tile-zoom-offset must not be negative")
	}
	if cfg.Concurrency <= 0 {
		return Config{}, errors.New("RAIDATLAS_TILE_CONCURRENCY must be positive")
	}

	return cfg, nil
}

// Run executes one bundle build using the provided Config.
//
// Groups without an interactive variant are counted and skipped; any other
// failure aborts the whole run so a partial bundle is never written.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}

	client := sourcedata.NewClient(cfg.MapsURL, cfg.DataURL, cfg.UserAgent, nil)

	names, err := client.FetchNames(ctx)
	if err != nil {
		return fmt.Errorf("fetch display names: %w", err)
	}
	spawns, err := client.FetchSpawns(ctx)
	if err != nil {
		return fmt.Errorf("fetch spawns: %w", err)
	}
	extracts, err := client.FetchExtracts(ctx)
	if err != nil {
		return fmt.Errorf("fetch extracts: %w", err)
	}
	groups, err := client.FetchGroups(ctx)
	if err != nil {
		return fmt.Errorf("fetch map descriptors: %w", err)
	}

	cache, err := rastercache.Open(filepath.Join(cfg.OutDir, cacheFile))
	if err != nil {
		return fmt.Errorf("open raster cache: %w", err)
	}
	defer cache.Close()

	renderer := render.New(render.Config{
		OutDir:      cfg.OutDir,
		UserAgent:   cfg.UserAgent,
		Concurrency: cfg.Concurrency,
		ZoomOffset:  cfg.ZoomOffset,
		Force:       cfg.Force,
	}, cache, render.NewBarProgress(out), nil)

	tracer := otel.Tracer("github.com/louisbranch/raidatlas/internal/tools/fetchmaps")

	var entries []maps.Map
	skipped := 0
	for _, group := range groups {
		entry, built, err := buildMap(ctx, tracer, renderer, group, names, spawns, extracts)
		if err != nil {
			return err
		}
		if !built {
			skipped++
			continue
		}
		entries = append(entries, entry)
		fmt.Fprintf(out, "built %s\n", entry.NormalizedName)
	}

	if err := bundle.Write(cfg.OutDir, entries); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "wrote %d map(s) to %s (%d group(s) skipped)\n",
		len(entries), cfg.OutDir, skipped)
	return err
}

// buildMap normalizes one raw group and renders its raster. The bool result
// reports whether the group produced a bundle entry.
func buildMap(
	ctx context.Context,
	tracer trace.Tracer,
	renderer *render.Renderer,
	group sourcedata.Group,
	names map[string]string,
	spawns map[string][]maps.Spawn,
	extracts map[string][]maps.Extract,
) (maps.Map, bool, error) {
	ctx, span := tracer.Start(ctx, "fetchmaps.build_map",
		trace.WithAttributes(attribute.String("map.slug", group.NormalizedName)))
	defer span.End()

	desc, err := sourcedata.Normalize(group, names)
	if err != nil {
		span.RecordError(err)
		return maps.Map{}, false, err
	}
	if desc == nil {
		span.SetAttributes(attribute.Bool("map.skipped", true))
		return maps.Map{}, false, nil
	}

	asset, err := renderer.Render(ctx, desc.NormalizedName, desc.Source)
	if err != nil {
		span.RecordError(err)
		return maps.Map{}, false, err
	}

	return assemble(desc, asset, spawns[desc.NormalizedName], extracts[desc.NormalizedName]), true, nil
}

// assemble joins the normalized descriptor, the rendered raster and the
// overlay enrichment into one bundle entry.
func assemble(desc *sourcedata.Descriptor, asset render.Asset, spawns []maps.Spawn, extracts []maps.Extract) maps.Map {
	entry := maps.Map{
		NormalizedName:     desc.NormalizedName,
		Name:               desc.Name,
		ImagePath:          asset.Path,
		ImageSize:          asset.Size,
		LogicalSize:        asset.Size,
		AltMaps:            desc.AltMaps,
		Author:             desc.Author,
		AuthorLink:         desc.AuthorLink,
		Transform:          desc.Transform,
		CoordinateRotation: desc.CoordinateRotation,
		Bounds:             desc.Bounds,
		HeightRange:        desc.HeightRange,
		Layers:             desc.Layers,
		Labels:             desc.Labels,
		Spawns:             spawns,
		Extracts:           extracts,
	}

	// World-unit extent comes from the descriptor bounds when present; the
	// corners arrive as [[maxX, minY], [minX, maxY]].
	if b := desc.Bounds; b != nil {
		entry.LogicalSize = [2]float32{
			float32(math.Abs(b[0][0] - b[1][0])),
			float32(math.Abs(b[1][1] - b[0][1])),
		}
	}
	return entry
}
