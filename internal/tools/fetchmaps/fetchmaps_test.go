package fetchmaps

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/louisbranch/raidatlas/internal/bundle"
)

// testUpstream serves the descriptor feed, the enrichment queries and the
// map assets from one server, counting asset requests separately so tests
// can assert cache behavior.
type testUpstream struct {
	server        *httptest.Server
	assetRequests atomic.Int64
}

func newTestUpstream(t *testing.T) *testUpstream {
	t.Helper()
	upstream := &testUpstream{}

	mux := http.NewServeMux()
	mux.HandleFunc("/maps.json", func(w http.ResponseWriter, r *http.Request) {
		descriptors := fmt.Sprintf(`[
  {
    "normalizedName": "customs",
    "maps": [
      {
        "projection": "interactive",
        "tilePath": "%s/tiles/{z}/{x}/{y}.png",
        "tileSize": 4,
        "minZoom": 0,
        "maxZoom": 1,
        "coordinateRotation": 90,
        "bounds": [[100, -50], [-100, 50]]
      }
    ]
  },
  {
    "normalizedName": "factory",
    "maps": [
      {"projection": "3d"},
      {
        "projection": "interactive",
        "svgPath": "%s/svg/factory.svg",
        "author": "mapmaker",
        "authorLink": "https://example.com"
      }
    ]
  },
  {
    "normalizedName": "labs-render",
    "maps": [{"projection": "2d"}]
  }
]`, upstream.server.URL, upstream.server.URL)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, descriptors)
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case bytes.Contains(body, []byte("spawns{")):
			_, _ = io.WriteString(w, `{"data": {"maps": [
  {"normalizedName": "customs", "spawns": [
    {"position": {"x": 1, "y": 0, "z": 2}, "sides": ["pmc"], "categories": ["player"]},
    {"position": {"x": 9, "y": 0, "z": 9}, "sides": ["scav"], "categories": ["bot"]}
  ]},
  {"normalizedName": "factory", "spawns": []}
]}}`)
		case bytes.Contains(body, []byte("extracts{")):
			_, _ = io.WriteString(w, `{"data": {"maps": [
  {"normalizedName": "customs", "extracts": [
    {"name": "Crossroads", "faction": "pmc", "position": {"x": 3, "y": 0, "z": 4}},
    {"name": "", "faction": "pmc"}
  ]}
]}}`)
		default:
			_, _ = io.WriteString(w, `{"data": {"maps": [
  {"normalizedName": "customs", "name": "Customs"},
  {"normalizedName": "factory", "name": "Factory"}
]}}`)
		}
	})
	mux.HandleFunc("/tiles/", func(w http.ResponseWriter, r *http.Request) {
		upstream.assetRequests.Add(1)
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Errorf("encode tile: %v", err)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	})
	mux.HandleFunc("/svg/factory.svg", func(w http.ResponseWriter, r *http.Request) {
		upstream.assetRequests.Add(1)
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = io.WriteString(w, `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="8" viewBox="0 0 10 8"><rect width="10" height="8" fill="#333"/></svg>`)
	})

	upstream.server = httptest.NewServer(mux)
	t.Cleanup(upstream.server.Close)
	return upstream
}

func testConfig(t *testing.T, upstream *testUpstream, outDir string, extraArgs ...string) Config {
	t.Helper()
	t.Setenv("RAIDATLAS_MAPS_URL", upstream.server.URL+"/maps.json")
	t.Setenv("RAIDATLAS_DATA_URL", upstream.server.URL+"/graphql")
	t.Setenv("RAIDATLAS_USER_AGENT", "raidatlas-test")
	t.Setenv("RAIDATLAS_TILE_CONCURRENCY", "4")

	args := append([]string{"-out", outDir}, extraArgs...)
	cfg, err := ParseConfig(flag.NewFlagSet("fetch-maps", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestRunBuildsBundle(t *testing.T) {
	upstream := newTestUpstream(t)
	outDir := filepath.Join(t.TempDir(), "assets")
	cfg := testConfig(t, upstream, outDir)

	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(out.String(), "wrote 2 map(s)") {
		t.Fatalf("expected summary with 2 maps, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "1 group(s) skipped") {
		t.Fatalf("expected 1 skipped group, got:\n%s", out.String())
	}

	entries, err := bundle.Load(outDir)
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 bundle entries, got %d", len(entries))
	}

	customs := entries[0]
	if customs.NormalizedName != "customs" || customs.Name != "Customs" {
		t.Fatalf("unexpected first entry %q (%q)", customs.NormalizedName, customs.Name)
	}
	if customs.ImagePath != "maps/customs.png" {
		t.Fatalf("expected raster path maps/customs.png, got %q", customs.ImagePath)
	}
	if customs.ImageSize != [2]float32{4, 4} {
		t.Fatalf("expected tile-sized image size [4 4], got %v", customs.ImageSize)
	}
	if customs.LogicalSize != [2]float32{200, 100} {
		t.Fatalf("expected world-unit size [200 100], got %v", customs.LogicalSize)
	}
	if len(customs.Spawns) != 1 {
		t.Fatalf("expected 1 player spawn, got %d", len(customs.Spawns))
	}
	if len(customs.Extracts) != 1 || customs.Extracts[0].Name != "Crossroads" {
		t.Fatalf("expected the named extract to survive, got %v", customs.Extracts)
	}
	if customs.CoordinateRotation == nil || *customs.CoordinateRotation != 90 {
		t.Fatalf("expected rotation 90, got %v", customs.CoordinateRotation)
	}

	factory := entries[1]
	if factory.NormalizedName != "factory" {
		t.Fatalf("unexpected second entry %q", factory.NormalizedName)
	}
	if factory.ImageSize != [2]float32{10, 8} {
		t.Fatalf("expected vector source size [10 8], got %v", factory.ImageSize)
	}
	if factory.LogicalSize != factory.ImageSize {
		t.Fatalf("expected logical size to fall back to image size, got %v", factory.LogicalSize)
	}
	if factory.Author != "mapmaker" {
		t.Fatalf("expected author to carry through, got %q", factory.Author)
	}

	for _, name := range []string{"customs.png", "factory.png"} {
		if _, err := os.Stat(filepath.Join(outDir, "maps", name)); err != nil {
			t.Fatalf("expected raster %s on disk: %v", name, err)
		}
	}
}

func TestRunSecondPassUsesCache(t *testing.T) {
	upstream := newTestUpstream(t)
	outDir := filepath.Join(t.TempDir(), "assets")
	cfg := testConfig(t, upstream, outDir)

	if err := Run(context.Background(), cfg, io.Discard); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstPass := upstream.assetRequests.Load()
	if firstPass == 0 {
		t.Fatal("expected the first run to fetch assets")
	}

	if err := Run(context.Background(), cfg, io.Discard); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := upstream.assetRequests.Load(); got != firstPass {
		t.Fatalf("expected cached second run to fetch nothing, got %d more requests", got-firstPass)
	}
}

func TestRunForceRebuilds(t *testing.T) {
	upstream := newTestUpstream(t)
	outDir := filepath.Join(t.TempDir(), "assets")

	if err := Run(context.Background(), testConfig(t, upstream, outDir), io.Discard); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstPass := upstream.assetRequests.Load()

	forced := testConfig(t, upstream, outDir, "-force")
	if err := Run(context.Background(), forced, io.Discard); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if got := upstream.assetRequests.Load(); got != firstPass*2 {
		t.Fatalf("expected force to re-fetch all %d assets, got %d total", firstPass, got)
	}
}

func TestRunFailsOnMissingName(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/maps.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
  {"normalizedName": "ghost", "maps": [{"projection": "interactive", "svgPath": "`+server.URL+`/ghost.svg"}]}
]`)
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": {"maps": []}}`)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Setenv("RAIDATLAS_MAPS_URL", server.URL+"/maps.json")
	t.Setenv("RAIDATLAS_DATA_URL", server.URL+"/graphql")
	t.Setenv("RAIDATLAS_USER_AGENT", "raidatlas-test")
	t.Setenv("RAIDATLAS_TILE_CONCURRENCY", "4")

	outDir := filepath.Join(t.TempDir(), "assets")
	cfg, err := ParseConfig(flag.NewFlagSet("fetch-maps", flag.ContinueOnError), []string{"-out", outDir})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if err := Run(context.Background(), cfg, io.Discard); err == nil {
		t.Fatal("expected error for map without a display name")
	}
	if _, err := os.Stat(filepath.Join(outDir, "maps.json")); !os.IsNotExist(err) {
		t.Fatal("expected no manifest after a failed run")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(flag.NewFlagSet("fetch-maps", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.OutDir != "assets" {
		t.Fatalf("expected default out dir assets, got %q", cfg.OutDir)
	}
	if cfg.ZoomOffset != 2 {
		t.Fatalf("expected default zoom offset 2, got %d", cfg.ZoomOffset)
	}
	if cfg.Force {
		t.Fatal("expected force to default off")
	}
	if cfg.MapsURL == "" || cfg.DataURL == "" || cfg.UserAgent == "" {
		t.Fatal("expected endpoint defaults to be populated")
	}
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "negative zoom offset", args: []string{"-tile-zoom-offset", "-1"}},
		{name: "blank out dir", args: []string{"-out", "  "}},
		{name: "zero concurrency", env: map[string]string{"RAIDATLAS_TILE_CONCURRENCY": "0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			if _, err := ParseConfig(flag.NewFlagSet("fetch-maps", flag.ContinueOnError), tc.args); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("RAIDATLAS_MAPS_URL", "https://mirror.example.com/maps.json")
	t.Setenv("RAIDATLAS_TILE_CONCURRENCY", "8")

	cfg, err := ParseConfig(flag.NewFlagSet("fetch-maps", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.MapsURL != "https://mirror.example.com/maps.json" {
		t.Fatalf("expected env override, got %q", cfg.MapsURL)
	}
	if cfg.Concurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.Concurrency)
	}
}
