package sourcedata

import (
	"fmt"

	"github.com/louisbranch/raidatlas/internal/maps"
	perrors "github.com/louisbranch/raidatlas/internal/platform/errors"
)

// DefaultTileSize applies when a tile-sourced variant omits tileSize.
const DefaultTileSize = 256

// projectionInteractive marks the one pan/zoom variant per group; all other
// projections (2D, 3D renders) are skipped.
const projectionInteractive = "interactive"

// Descriptor is the strict internal form of one interactive map variant.
// Every field a later stage needs is resolved; nothing optional-but-required
// leaks past normalization.
type Descriptor struct {
	NormalizedName     string
	Name               string
	Source             Source
	AltMaps            []string
	Author             string
	AuthorLink         string
	Transform          *[4]float64
	CoordinateRotation *float64
	Bounds             *[2][2]float64
	HeightRange        *[2]float64
	Layers             []maps.Layer
	Labels             []maps.Label
}

// Source is the two-arm asset source union: a map is rendered either from
// a single vector document or from a tile pyramid, never both.
type Source interface {
	sourceKind() string
}

// SVGSource rasterizes one vector document.
type SVGSource struct {
	URL string
}

func (SVGSource) sourceKind() string { return "svg" }

// TileSource composes a zoom-limited tile pyramid.
type TileSource struct {
	URLTemplate string
	TileSize    int
	MinZoom     int
	MaxZoom     int
}

func (TileSource) sourceKind() string { return "tiles" }

// Normalize selects the interactive variant of a raw group and resolves it
// into a strict Descriptor.
//
// A group without an interactive variant returns (nil, nil); the caller
// counts it as skipped. Missing display name, missing asset source, and a
// tile source without zoom limits are hard errors that abort the run.
func Normalize(group Group, names map[string]string) (*Descriptor, error) {
	variant, ok := interactiveVariant(group.Maps)
	if !ok {
		return nil, nil
	}

	slug := group.NormalizedName
	meta := map[string]string{"map": slug}

	name, ok := names[slug]
	if !ok {
		return nil, perrors.WithMetadata(perrors.CodeMapNameMissing,
			fmt.Sprintf("map %q has no display name", slug), meta)
	}

	source, err := resolveSource(slug, variant)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		NormalizedName:     slug,
		Name:               name,
		Source:             source,
		AltMaps:            variant.AltMaps,
		Author:             variant.Author,
		AuthorLink:         variant.AuthorLink,
		Transform:          variant.Transform,
		CoordinateRotation: variant.CoordinateRotation.Float(),
		Bounds:             variant.Bounds,
		HeightRange:        variant.HeightRange,
		Layers:             convertLayers(variant.Layers),
		Labels:             convertLabels(variant.Labels),
	}, nil
}

func interactiveVariant(variants []Variant) (Variant, bool) {
	for _, v := range variants {
		if v.Projection == projectionInteractive {
			return v, true
		}
	}
	return Variant{}, false
}

func resolveSource(slug string, v Variant) (Source, error) {
	meta := map[string]string{"map": slug}

	if v.SVGPath != "" {
		return SVGSource{URL: v.SVGPath}, nil
	}
	if v.TilePath == "" {
		return nil, perrors.WithMetadata(perrors.CodeMapSourceMissing,
			fmt.Sprintf("map %q has no svgPath or tilePath", slug), meta)
	}

	if v.MinZoom == nil {
		return nil, perrors.WithMetadata(perrors.CodeMapMinZoomMissing,
			fmt.Sprintf("map %q is missing minZoom", slug), meta)
	}
	if v.MaxZoom == nil {
		return nil, perrors.WithMetadata(perrors.CodeMapMaxZoomMissing,
			fmt.Sprintf("map %q is missing maxZoom", slug), meta)
	}

	tileSize := DefaultTileSize
	if v.TileSize != nil {
		tileSize = *v.TileSize
	}

	return TileSource{
		URLTemplate: v.TilePath,
		TileSize:    tileSize,
		MinZoom:     *v.MinZoom,
		MaxZoom:     *v.MaxZoom,
	}, nil
}

func convertLayers(raw []VariantLayer) []maps.Layer {
	if len(raw) == 0 {
		return nil
	}
	layers := make([]maps.Layer, 0, len(raw))
	for _, l := range raw {
		layers = append(layers, maps.Layer{
			Name:     l.Name,
			SVGLayer: l.SVGLayer,
			TilePath: l.TilePath,
			Show:     l.Show,
			Extents:  convertExtents(l.Extents),
		})
	}
	return layers
}

func convertExtents(raw []VariantExtent) []maps.Extent {
	if len(raw) == 0 {
		return nil
	}
	extents := make([]maps.Extent, 0, len(raw))
	for _, e := range raw {
		extent := maps.Extent{Height: e.Height}
		for _, b := range e.Bounds {
			extent.Bounds = append(extent.Bounds, maps.ExtentBound{
				Point1: b.Point1,
				Point2: b.Point2,
				Name:   b.Name,
			})
		}
		extents = append(extents, extent)
	}
	return extents
}

func convertLabels(raw []VariantLabel) []maps.Label {
	if len(raw) == 0 {
		return nil
	}
	labels := make([]maps.Label, 0, len(raw))
	for _, l := range raw {
		labels = append(labels, maps.Label{
			Position: l.Position,
			Text:     l.Text,
			Rotation: l.Rotation.Float(),
			Size:     l.Size,
			Top:      l.Top,
			Bottom:   l.Bottom,
		})
	}
	return labels
}
