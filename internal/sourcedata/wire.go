package sourcedata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	perrors "github.com/louisbranch/raidatlas/internal/platform/errors"
)

// Group is one raw location record from the descriptor feed: a slug plus
// zero or more map variants (interactive, 2D, 3D renders).
type Group struct {
	NormalizedName string    `json:"normalizedName"`
	Maps           []Variant `json:"maps"`
}

// Variant is one raw map variant. Everything except Projection is optional
// upstream; normalization decides what is actually required.
type Variant struct {
	Projection         string          `json:"projection"`
	AltMaps            []string        `json:"altMaps"`
	Author             string          `json:"author"`
	AuthorLink         string          `json:"authorLink"`
	TileSize           *int            `json:"tileSize"`
	MinZoom            *int            `json:"minZoom"`
	MaxZoom            *int            `json:"maxZoom"`
	Transform          *[4]float64     `json:"transform"`
	CoordinateRotation *FlexFloat      `json:"coordinateRotation"`
	Bounds             *[2][2]float64  `json:"bounds"`
	SVGPath            string          `json:"svgPath"`
	TilePath           string          `json:"tilePath"`
	HeightRange        *[2]float64     `json:"heightRange"`
	Layers             []VariantLayer  `json:"layers"`
	Labels             []VariantLabel  `json:"labels"`
}

// VariantLayer is a raw floor/area layer.
type VariantLayer struct {
	Name     string          `json:"name"`
	SVGLayer string          `json:"svgLayer"`
	TilePath string          `json:"tilePath"`
	Show     bool            `json:"show"`
	Extents  []VariantExtent `json:"extents"`
}

// VariantExtent is a raw height window with optional bound areas.
type VariantExtent struct {
	Height [2]float64           `json:"height"`
	Bounds []VariantExtentBound `json:"bounds"`
}

// VariantLabel is a raw static text annotation.
type VariantLabel struct {
	Position [2]float64 `json:"position"`
	Text     string     `json:"text"`
	Rotation *FlexFloat `json:"rotation"`
	Size     *int       `json:"size"`
	Top      *float64   `json:"top"`
	Bottom   *float64   `json:"bottom"`
}

// FlexFloat decodes a JSON number or a numeric string. The upstream feed
// encodes some rotation fields both ways; the ambiguity stops here and the
// rest of the pipeline only ever sees a float64.
type FlexFloat float64

// UnmarshalJSON accepts 90, "90", and "90.5"; any other shape is a
// normalization error.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return perrors.Wrap(perrors.CodeRotationInvalid, "rotation string malformed", err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return perrors.WithMetadata(perrors.CodeRotationInvalid,
				fmt.Sprintf("rotation string %q is not numeric", s),
				map[string]string{"value": s})
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return perrors.WithMetadata(perrors.CodeRotationInvalid,
			fmt.Sprintf("rotation must be a number or numeric string, got %s", trimmed),
			map[string]string{"value": trimmed})
	}
	*f = FlexFloat(v)
	return nil
}

// Float returns the decoded value, or nil when f is nil.
func (f *FlexFloat) Float() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

// VariantExtentBound is a raw bound area. Upstream encodes it as a
// positional array [[x1,y1],[x2,y2],"name"]; missing or malformed elements
// default to zero values rather than failing, tolerating partial data.
type VariantExtentBound struct {
	Point1 [2]float64
	Point2 [2]float64
	Name   string
}

// UnmarshalJSON decodes the positional-array encoding.
func (b *VariantExtentBound) UnmarshalJSON(data []byte) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return fmt.Errorf("extent bound must be an array: %w", err)
	}

	point := func(idx int) [2]float64 {
		var pt [2]float64
		if idx >= len(elements) {
			return pt
		}
		var raw []float64
		if err := json.Unmarshal(elements[idx], &raw); err != nil {
			return pt
		}
		for i := 0; i < len(raw) && i < 2; i++ {
			pt[i] = raw[i]
		}
		return pt
	}

	b.Point1 = point(0)
	b.Point2 = point(1)
	b.Name = ""
	if len(elements) > 2 {
		// Non-string third element degrades to an empty name.
		_ = json.Unmarshal(elements[2], &b.Name)
	}
	return nil
}
