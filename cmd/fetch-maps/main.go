package main

import (
	"context"
	"flag"
	"os"

	"github.com/louisbranch/raidatlas/internal/platform/config"
	"github.com/louisbranch/raidatlas/internal/platform/otel"
	"github.com/louisbranch/raidatlas/internal/tools/fetchmaps"
)

func main() {
	ctx := context.Background()

	cfg, err := fetchmaps.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	shutdown, err := otel.Setup(ctx, "fetch-maps")
	if err != nil {
		config.Exitf("Error: %v", err)
	}
	defer func() {
		_ = shutdown(ctx)
	}()

	if err := fetchmaps.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
