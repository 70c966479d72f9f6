package maps_test

import (
	"math"
	"testing"

	"github.com/louisbranch/raidatlas/internal/maps"
)

const epsilon = 1e-9

func f64ptr(v float64) *float64 { return &v }

func approx(a, b float64) bool { return math.Abs(a-b) < epsilon }

func testMap(bounds [2][2]float64, rotation float64) *maps.Map {
	return &maps.Map{
		NormalizedName:     "test",
		Bounds:             &bounds,
		CoordinateRotation: f64ptr(rotation),
	}
}

func TestProjectCenterPoint(t *testing.T) {
	m := testMap([2][2]float64{{100, -50}, {-100, 50}}, 0)
	rect := maps.Rect{MinX: 0, MinY: 0, MaxX: 200, MaxY: 200}

	p, ok := maps.Project(m, rect, [2]float64{0, 0})
	if !ok {
		t.Fatal("expected projection")
	}
	if !approx(p.X, 100) || !approx(p.Y, 100) {
		t.Fatalf("expected (100, 100), got (%v, %v)", p.X, p.Y)
	}
}

func TestProjectBoundsCornersHitRectCorners(t *testing.T) {
	bounds := [2][2]float64{{100, -50}, {-100, 50}}
	rect := maps.Rect{MinX: 0, MinY: 0, MaxX: 200, MaxY: 200}

	// maxX maps right, maxY maps top (Y axis inverted to the image
	// convention), so [maxX, minY] lands on the bottom-right corner.
	tests := []struct {
		name   string
		point  [2]float64
		wantX  float64
		wantY  float64
	}{
		{"maxX minY -> bottom right", [2]float64{100, -50}, 200, 200},
		{"maxX maxY -> top right", [2]float64{100, 50}, 200, 0},
		{"minX minY -> bottom left", [2]float64{-100, -50}, 0, 200},
		{"minX maxY -> top left", [2]float64{-100, 50}, 0, 0},
	}

	m := testMap(bounds, 0)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := maps.Project(m, rect, tc.point)
			if !ok {
				t.Fatal("expected projection")
			}
			if !approx(p.X, tc.wantX) || !approx(p.Y, tc.wantY) {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tc.wantX, tc.wantY, p.X, p.Y)
			}
		})
	}
}

func TestProjectInteriorPointsStayInsideRect(t *testing.T) {
	bounds := [2][2]float64{{320, -180}, {-310, 220}}
	rect := maps.Rect{MinX: 10, MinY: 20, MaxX: 410, MaxY: 260}

	points := [][2]float64{
		{0, 0},
		{100, 100},
		{-250, -120},
		{319, 219},
		{-309, -179},
	}

	for _, rotation := range []float64{0, 90, 180, 270} {
		m := testMap(bounds, rotation)
		for _, pt := range points {
			p, ok := maps.Project(m, rect, pt)
			if !ok {
				t.Fatalf("rotation %v: expected projection for %v", rotation, pt)
			}
			if !rect.Contains(p) {
				t.Fatalf("rotation %v: point %v projected outside rect: (%v, %v)", rotation, pt, p.X, p.Y)
			}
		}
	}
}

func TestProjectRotatedCornersHitRectCorners(t *testing.T) {
	bounds := [2][2]float64{{120, -60}, {-80, 90}}
	rect := maps.Rect{MinX: 0, MinY: 0, MaxX: 300, MaxY: 150}

	corners := [][2]float64{
		{bounds[0][0], bounds[0][1]},
		{bounds[0][0], bounds[1][1]},
		{bounds[1][0], bounds[0][1]},
		{bounds[1][0], bounds[1][1]},
	}

	for _, rotation := range []float64{0, 90, 180, 270} {
		m := testMap(bounds, rotation)
		for _, c := range corners {
			p, ok := maps.Project(m, rect, c)
			if !ok {
				t.Fatalf("rotation %v: expected projection", rotation)
			}
			onX := approx(p.X, rect.MinX) || approx(p.X, rect.MaxX)
			onY := approx(p.Y, rect.MinY) || approx(p.Y, rect.MaxY)
			if !onX || !onY {
				t.Fatalf("rotation %v: corner %v did not land on a rect corner: (%v, %v)", rotation, c, p.X, p.Y)
			}
		}
	}
}

func TestProjectWithoutBounds(t *testing.T) {
	m := &maps.Map{NormalizedName: "no-bounds", CoordinateRotation: f64ptr(180)}
	rect := maps.Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

	if _, ok := maps.Project(m, rect, [2]float64{1, 2}); ok {
		t.Fatal("expected no projection without bounds")
	}
}

func TestProjectAffineOverrideAt270(t *testing.T) {
	// A 270-degree map with a transform ignores the bounds box and maps
	// through the vector source's own pixel space instead.
	rotation := 270.0
	m := &maps.Map{
		NormalizedName:     "labs",
		ImageSize:          [2]float32{200, 100},
		Bounds:             &[2][2]float64{{50, -50}, {-50, 50}},
		CoordinateRotation: &rotation,
		Transform:          &[4]float64{2, 100, 2, 50},
	}
	rect := maps.Rect{MinX: 0, MinY: 0, MaxX: 200, MaxY: 100}

	// Rotating (10, 20) by 270 degrees gives (20, -10). Then
	// svgX = 2*20 + 100 = 140, svgY = -2*(-10) + 50 = 70, so the
	// normalized fractions are 0.7 on both axes.
	p, ok := maps.Project(m, rect, [2]float64{10, 20})
	if !ok {
		t.Fatal("expected projection")
	}
	if !approx(p.X, 140) || !approx(p.Y, 70) {
		t.Fatalf("expected (140, 70), got (%v, %v)", p.X, p.Y)
	}
}

func TestProjectAffineIgnoredAtOtherRotations(t *testing.T) {
	// The transform only applies at exactly 270 degrees; a 180-degree map
	// carrying one still projects through its bounds.
	rotation := 180.0
	m := &maps.Map{
		NormalizedName:     "woods",
		ImageSize:          [2]float32{200, 100},
		Bounds:             &[2][2]float64{{100, -50}, {-100, 50}},
		CoordinateRotation: &rotation,
		Transform:          &[4]float64{2, 100, 2, 50},
	}
	rect := maps.Rect{MinX: 0, MinY: 0, MaxX: 200, MaxY: 200}

	p, ok := maps.Project(m, rect, [2]float64{0, 0})
	if !ok {
		t.Fatal("expected projection")
	}
	if !approx(p.X, 100) || !approx(p.Y, 100) {
		t.Fatalf("expected bounds-based center (100, 100), got (%v, %v)", p.X, p.Y)
	}
}

func TestRotatePoint(t *testing.T) {
	tests := []struct {
		name  string
		x, y  float64
		angle float64
		wantX float64
		wantY float64
	}{
		{"zero angle is identity", 3, 4, 0, 3, 4},
		{"90 degrees", 1, 0, 90, 0, 1},
		{"180 degrees", 1, 2, 180, -1, -2},
		{"270 degrees", 1, 0, 270, 0, -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := maps.RotatePoint(tc.x, tc.y, tc.angle)
			if !approx(x, tc.wantX) || !approx(y, tc.wantY) {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tc.wantX, tc.wantY, x, y)
			}
		})
	}
}

func TestPlayerMarkerXZ(t *testing.T) {
	marker := maps.PlayerMarker{Position: [3]float64{12, 4, -7}, Yaw: 90}
	xz := marker.XZ()
	if xz[0] != 12 || xz[1] != -7 {
		t.Fatalf("expected [12 -7], got %v", xz)
	}
}
