// Package listing loads the pin set a runner serves from the configured
// source.
package listing

import (
	"context"
	"fmt"
	"strings"

	"web/rentmap/cluster"
	"web/rentmap/config"
	"web/rentmap/logger"
)

// Load returns validated pins from cfg.PinSource: "sample", "file" (JSON via
// mmap, or a .zst archive) or "postgres".
func Load(ctx context.Context, cfg *config.Config) (cluster.PinSet, error) {
	var (
		pins cluster.PinSet
		err  error
	)

	switch cfg.PinSource {
	case "", "sample":
		pins = cluster.SamplePins()
	case "file":
		pins, err = LoadFile(cfg.PinFile)
	case "postgres":
		var src *PostgresSource
		src, err = OpenPostgres(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		defer src.Close()
		pins, err = src.Pins(ctx)
	default:
		return nil, fmt.Errorf("unknown pin source %q", cfg.PinSource)
	}
	if err != nil {
		return nil, err
	}

	if err := pins.Validate(); err != nil {
		return nil, err
	}
	logger.L().Info("pins_loaded", "source", cfg.PinSource, "count", len(pins))
	return pins, nil
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (cluster.PinSet, error) {
	if strings.HasSuffix(path, ".zst") {
		return cluster.LoadPinsCompressed(path)
	}
	return cluster.LoadPinsFile(path)
}
