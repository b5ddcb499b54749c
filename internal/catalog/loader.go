package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped seed files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based seed loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

// Load reads a gzipped seed file from disk.
func (l *fileLoader) Load(ctx context.Context, path string) ([]Item, error) {
	l.logger.Info().Str("file", path).Msg("loading seed file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open seed file")
		return nil, fmt.Errorf("failed to open seed file %s: %w", path, err)
	}
	defer file.Close()

	items, err := decode(ctx, file, path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read seed file")
		return nil, err
	}

	l.logger.Info().
		Str("file", path).
		Int("items_loaded", len(items)).
		Msg("seed file loaded successfully")

	return items, nil
}
