package maps

import "math"

// Point is a position in display space.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned display rectangle, typically the raster's
// on-screen extent.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Width returns the rectangle's horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the rectangle's vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Contains reports whether p lies inside r, inclusive of edges.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// RotatePoint rotates (x, y) about the origin by angleDeg degrees.
func RotatePoint(x, y, angleDeg float64) (float64, float64) {
	if angleDeg == 0 {
		return x, y
	}
	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return x*cos - y*sin, x*sin + y*cos
}

// Project converts a world-space point to a display position on m's raster.
//
// It reproduces the reference web-mapping renderer the upstream feed was
// authored against, so the branching here is intentional:
//
//  1. The point is rotated about the origin by CoordinateRotation degrees.
//  2. Maps rotated exactly 270 degrees that carry an affine transform take
//     the transform path: the rotated point maps into the vector source's
//     own pixel space (the transform captures the source's asymmetric
//     padding), then normalizes by ImageSize.
//  3. Every other map normalizes the rotated point within the axis-aligned
//     box of the rotated bounds corners, with the Y axis inverted to match
//     the renderer's top-down image convention.
//
// The second return is false when m has no bounds, in which case the
// projection is undefined.
func Project(m *Map, rect Rect, gamePoint [2]float64) (Point, bool) {
	if m.Bounds == nil {
		return Point{}, false
	}
	bounds := *m.Bounds

	var rotation float64
	if m.CoordinateRotation != nil {
		rotation = *m.CoordinateRotation
	}

	rx, ry := RotatePoint(gamePoint[0], gamePoint[1], rotation)

	if rotation == 270 && m.Transform != nil {
		t := *m.Transform
		scaleX, marginX := t[0], t[1]
		scaleY, marginY := -t[2], t[3] // Y scale negated per the reference renderer
		svgX := scaleX*rx + marginX
		svgY := scaleY*ry + marginY

		fracX := svgX / float64(m.ImageSize[0])
		fracY := svgY / float64(m.ImageSize[1])

		return Point{
			X: rect.MinX + fracX*rect.Width(),
			Y: rect.MinY + fracY*rect.Height(),
		}, true
	}

	// Bounds arrive as [[maxX, minY], [minX, maxY]]; rotate all four
	// corners and take their axis-aligned box as the rotated extent.
	corners := [4][2]float64{
		{bounds[0][0], bounds[0][1]},
		{bounds[0][0], bounds[1][1]},
		{bounds[1][0], bounds[0][1]},
		{bounds[1][0], bounds[1][1]},
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range corners {
		cx, cy := RotatePoint(c[0], c[1], rotation)
		minX = math.Min(minX, cx)
		maxX = math.Max(maxX, cx)
		minY = math.Min(minY, cy)
		maxY = math.Max(maxY, cy)
	}

	fracX := (rx - minX) / (maxX - minX)
	fracY := (maxY - ry) / (maxY - minY) // Y inverted: world up is image top

	return Point{
		X: rect.MinX + fracX*rect.Width(),
		Y: rect.MinY + fracY*rect.Height(),
	}, true
}
