// Package bundle reads and writes the map bundle manifest that ships with
// the produced rasters.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/louisbranch/raidatlas/internal/maps"
	"github.com/louisbranch/raidatlas/internal/platform/errors"
)

// ManifestName is the bundle manifest file name inside the output directory.
const ManifestName = "maps.json"

// Write persists the manifest at outDir/maps.json. Entries are written in
// the order given, preserving the upstream feed order end to end.
func Write(outDir string, entries []maps.Map) error {
	if entries == nil {
		entries = []maps.Map{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CodeBundleWrite, "encode manifest", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(errors.CodeBundleWrite, "create bundle dir", err)
	}
	path := filepath.Join(outDir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.CodeBundleWrite, fmt.Sprintf("write %s", path), err)
	}
	return nil
}

// Load reads the manifest back from outDir/maps.json.
func Load(outDir string) ([]maps.Map, error) {
	path := filepath.Join(outDir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []maps.Map
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(errors.CodeDecodeFailed, fmt.Sprintf("decode %s", path), err)
	}
	return entries, nil
}
