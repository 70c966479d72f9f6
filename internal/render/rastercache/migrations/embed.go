// Package migrations embeds the raster cache schema files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
