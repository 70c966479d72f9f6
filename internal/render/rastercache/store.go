// Package rastercache persists a catalog of rendered map rasters in SQLite so
// repeated runs can skip tile downloads and SVG rasterization.
package rastercache

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/louisbranch/raidatlas/internal/platform/errors"
	"github.com/louisbranch/raidatlas/internal/render"
	"github.com/louisbranch/raidatlas/internal/render/rastercache/migrations"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed render.Cache. The raster file on disk is the
// source of truth; catalog rows only carry dimensions so hits avoid
// re-decoding the PNG.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the catalog at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, errors.Wrap(errors.CodeCacheIO, "create cache dir", err)
	}
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCacheIO, "open cache db", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(errors.CodeCacheIO, "ping cache db", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(errors.CodeCacheIO, "migrate cache db", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Lookup reports whether a usable raster for slug already exists at diskPath.
// A catalog row without a file on disk is stale and counts as a miss; a file
// without a row is decoded and the row backfilled.
func (s *Store) Lookup(ctx context.Context, slug, diskPath string) (render.CachedRaster, bool, error) {
	if err := ctx.Err(); err != nil {
		return render.CachedRaster{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return render.CachedRaster{}, false, fmt.Errorf("cache is not configured")
	}

	if _, err := os.Stat(diskPath); err != nil {
		if os.IsNotExist(err) {
			return render.CachedRaster{}, false, nil
		}
		return render.CachedRaster{}, false, errors.Wrap(errors.CodeCacheIO, "stat raster", err)
	}

	raster := render.CachedRaster{Slug: slug, Path: diskPath}
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT width, height FROM rasters WHERE slug = ?", slug)
	err := row.Scan(&raster.Width, &raster.Height)
	switch {
	case err == nil:
		return raster, true, nil
	case err != sql.ErrNoRows:
		return render.CachedRaster{}, false, errors.Wrap(errors.CodeCacheIO, "query raster", err)
	}

	width, height, err := decodeSize(diskPath)
	if err != nil {
		return render.CachedRaster{}, false, err
	}
	raster.Width = width
	raster.Height = height
	if err := s.Store(ctx, raster); err != nil {
		return render.CachedRaster{}, false, err
	}
	return raster, true, nil
}

// Store upserts the catalog row for one rendered raster.
func (s *Store) Store(ctx context.Context, raster render.CachedRaster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("cache is not configured")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO rasters (slug, path, width, height, built_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET
    path = excluded.path,
    width = excluded.width,
    height = excluded.height,
    built_at = excluded.built_at
`, raster.Slug, raster.Path, raster.Width, raster.Height, time.Now().UTC().UnixMilli())
	if err != nil {
		return errors.Wrap(errors.CodeCacheIO, "store raster", err)
	}
	return nil
}

func decodeSize(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(errors.CodeCacheIO, "open raster", err)
	}
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, errors.Wrap(errors.CodeDecodeFailed, "decode raster", err)
	}
	return cfg.Width, cfg.Height, nil
}

func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	if _, err := sqlDB.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, file := range sqlFiles {
		var found int
		err := sqlDB.QueryRow(
			"SELECT 1 FROM schema_migrations WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := sqlDB.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := sqlDB.Exec(
			"INSERT OR IGNORE INTO schema_migrations (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", file, err)
		}
	}
	return nil
}
