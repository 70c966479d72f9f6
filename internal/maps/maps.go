// Package maps defines the published raid-map data model and the
// game-to-image coordinate projection.
//
// The model mirrors the upstream interactive map feed (camelCase field
// names) enriched with display names and overlay points, and is the type
// viewers decode from the bundle artifact.
package maps

// Map is one interactive raid location: normalized descriptor geometry,
// the pre-rendered raster metadata, and overlay enrichment.
type Map struct {
	// NormalizedName is the stable slug and unique bundle key
	// (e.g. "customs", "streets-of-tarkov").
	NormalizedName string `json:"normalizedName"`

	// Name is the human-readable display name (e.g. "Customs").
	Name string `json:"name"`

	// ImagePath locates the pre-rendered raster, relative to the bundle root.
	ImagePath string `json:"imagePath"`

	// ImageSize is the raster's reference dimensions [width, height].
	// For vector-sourced maps this is the source document size (the file on
	// disk is supersampled); for tile-sourced maps it is one tile's size,
	// matching the reference renderer's logical coordinate space.
	ImageSize [2]float32 `json:"imageSize"`

	// LogicalSize is the world-unit size [width, height], derived from
	// Bounds when present and falling back to ImageSize otherwise.
	LogicalSize [2]float32 `json:"logicalSize"`

	// AltMaps lists alternative location keys that share this map.
	AltMaps []string `json:"altMaps,omitempty"`

	Author     string `json:"author,omitempty"`
	AuthorLink string `json:"authorLink,omitempty"`

	// Transform is the affine override [scaleX, marginX, scaleY, marginY]
	// used by the projector for certain rotated maps whose vector sources
	// carry asymmetric padding.
	Transform *[4]float64 `json:"transform,omitempty"`

	// CoordinateRotation is the per-map rotation in degrees applied to
	// game coordinates before projection. Observed values: 0, 90, 180, 270.
	CoordinateRotation *float64 `json:"coordinateRotation,omitempty"`

	// Bounds holds two opposite world-space corners in the upstream
	// format [[maxX, minY], [minX, maxY]]. Projection is undefined
	// without it.
	Bounds *[2][2]float64 `json:"bounds,omitempty"`

	// HeightRange is the default [min, max] height window for layer
	// visibility.
	HeightRange *[2]float64 `json:"heightRange,omitempty"`

	Layers []Layer `json:"layers,omitempty"`
	Labels []Label `json:"labels,omitempty"`

	Spawns   []Spawn   `json:"spawns,omitempty"`
	Extracts []Extract `json:"extracts,omitempty"`
}

// Layer is one floor level or sub-area of a map.
type Layer struct {
	Name     string   `json:"name"`
	SVGLayer string   `json:"svgLayer,omitempty"`
	TilePath string   `json:"tilePath,omitempty"`
	Show     bool     `json:"show"`
	Extents  []Extent `json:"extents,omitempty"`
}

// Extent defines a height window, optionally limited to bound areas,
// that triggers a layer's visibility.
type Extent struct {
	Height [2]float64    `json:"height"`
	Bounds []ExtentBound `json:"bounds,omitempty"`
}

// ExtentBound is a named rectangular area within an extent.
type ExtentBound struct {
	Point1 [2]float64 `json:"point1"`
	Point2 [2]float64 `json:"point2"`
	Name   string     `json:"name"`
}

// Label is a static text annotation anchored in world coordinates.
type Label struct {
	Position [2]float64 `json:"position"`
	Text     string     `json:"text"`
	Rotation *float64   `json:"rotation,omitempty"`
	Size     *int       `json:"size,omitempty"`
	Top      *float64   `json:"top,omitempty"`
	Bottom   *float64   `json:"bottom,omitempty"`
}

// Spawn is a player spawn point. Only PMC-eligible player spawns survive
// normalization; the sides/categories arrays are retained as delivered.
type Spawn struct {
	Position   [3]float64 `json:"position"`
	Sides      []string   `json:"sides"`
	Categories []string   `json:"categories"`
}

// Extract is an extraction point.
type Extract struct {
	Name string `json:"name"`

	// Faction is "pmc", "scav", or "shared".
	Faction string `json:"faction"`

	Position *[3]float64 `json:"position,omitempty"`
}

// PlayerMarker is the live player position as delivered by an external
// position sensor. The pipeline treats it as an opaque value; viewers
// project XZ() like any other world point and rotate an icon by Yaw.
type PlayerMarker struct {
	Position [3]float64
	Yaw      float64
}

// XZ returns the horizontal-plane coordinates used for projection.
func (m PlayerMarker) XZ() [2]float64 {
	return [2]float64{m.Position[0], m.Position[2]}
}
